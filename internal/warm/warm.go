// 包 warm：按层级批量预取地区列表写入缓存，降低首批表单打开时对上游 API 的冲击
package warm

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"bansos-api/internal/logger"
	"bansos-api/internal/wilayah"
)

// Refresher 跳过缓存查询远端并回写缓存；regioncache.Chain 实现该接口
type Refresher interface {
	Refresh(ctx context.Context, tier wilayah.Tier, parentID string) ([]wilayah.Region, error)
}

// Options 预热参数；Depth 为最深预取层级（含），Concurrency 为单层并发上限
type Options struct {
	Depth       wilayah.Tier
	Concurrency int
}

// Report 预热结果统计
type Report struct {
	Requests int64         `json:"requests"`
	Failures int64         `json:"failures"`
	Regions  int64         `json:"regions"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Run：逐层预取，同层并发；单个父级失败仅记录，省级失败则整体返回错误
// 约束：ctx 取消时尽快返回 ctx 错误
func Run(ctx context.Context, r Refresher, opt Options) (Report, error) {
	l := logger.L()
	start := time.Now()
	if opt.Concurrency <= 0 {
		opt.Concurrency = 8
	}
	if !opt.Depth.Valid() {
		opt.Depth = wilayah.City
	}
	var rep Report

	provinces, err := r.Refresh(ctx, wilayah.Province, "")
	rep.Requests++
	if err != nil {
		rep.Failures++
		return rep, fmt.Errorf("warm provinces: %w", err)
	}
	rep.Regions += int64(len(provinces))
	parents := ids(provinces)

	var requests, failures, regions atomic.Int64
	for tier := wilayah.City; tier <= opt.Depth; tier++ {
		var (
			mu   sync.Mutex
			next []string
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opt.Concurrency)
		for _, pid := range parents {
			tier, pid := tier, pid
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				requests.Add(1)
				children, err := r.Refresh(gctx, tier, pid)
				if err != nil {
					failures.Add(1)
					l.Warn("warm_fetch_error", "tier", tier.String(), "parent", pid, "err", err)
					return nil
				}
				regions.Add(int64(len(children)))
				mu.Lock()
				next = append(next, ids(children)...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return finish(rep, &requests, &failures, &regions, start), err
		}
		if err := ctx.Err(); err != nil {
			return finish(rep, &requests, &failures, &regions, start), err
		}
		l.Info("warm_tier_done", "tier", tier.String(), "parents", len(parents), "children", len(next))
		parents = next
	}
	rep = finish(rep, &requests, &failures, &regions, start)
	l.Info("warm_done", "requests", rep.Requests, "failures", rep.Failures, "regions", rep.Regions, "elapsed", rep.Elapsed)
	return rep, nil
}

func finish(rep Report, requests, failures, regions *atomic.Int64, start time.Time) Report {
	rep.Requests += requests.Load()
	rep.Failures += failures.Load()
	rep.Regions += regions.Load()
	rep.Elapsed = time.Since(start)
	return rep
}

func ids(rs []wilayah.Region) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

// OptionsFromEnv 读取 REGION_WARM_DEPTH（层级名，默认 city）与 REGION_WARM_CONCURRENCY（默认 8）
func OptionsFromEnv() Options {
	opt := Options{Depth: wilayah.City, Concurrency: 8}
	if t, ok := wilayah.ParseTier(os.Getenv("REGION_WARM_DEPTH")); ok {
		opt.Depth = t
	}
	if v := os.Getenv("REGION_WARM_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opt.Concurrency = n
		}
	}
	return opt
}
