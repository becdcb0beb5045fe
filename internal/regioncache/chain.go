// 包 regioncache：地区子级列表的多级缓存（进程内 LRU → Redis → 远端 API）
package regioncache

import (
	"context"
	"os"
	"strconv"
	"time"

	"bansos-api/internal/logger"
	"bansos-api/internal/metrics"
	"bansos-api/internal/wilayah"

	"github.com/redis/go-redis/v9"
)

// Chain 以缓存包装远端 Lookup，自身也实现 wilayah.Lookup
// 约束：失败结果不缓存；空列表照常缓存（上游确实没有子级）
type Chain struct {
	mem    *LRU
	rds    *Redis
	origin wilayah.Lookup
}

func NewChain(origin wilayah.Lookup, mem *LRU, rds *Redis) *Chain {
	return &Chain{mem: mem, rds: rds, origin: origin}
}

// NewChainFromEnv 读取 REGION_CACHE_TTL_S（默认 86400）与 REGION_LRU_SIZE（默认 2048）
func NewChainFromEnv(origin wilayah.Lookup, rc *redis.Client) *Chain {
	ttl := 24 * time.Hour
	if s := os.Getenv("REGION_CACHE_TTL_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	size := 2048
	if s := os.Getenv("REGION_LRU_SIZE"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			size = n
		}
	}
	var rds *Redis
	if rc != nil {
		rds = NewRedis(rc, ttl)
	}
	return NewChain(origin, NewLRU(size, ttl), rds)
}

// Key 缓存键：层级名 + 父级 id；省级无父级
func Key(tier wilayah.Tier, parentID string) string {
	if tier == wilayah.Province {
		return tier.String()
	}
	return tier.String() + ":" + parentID
}

func (c *Chain) Children(ctx context.Context, tier wilayah.Tier, parentID string) ([]wilayah.Region, error) {
	if tier == wilayah.Province {
		parentID = ""
	}
	k := Key(tier, parentID)
	if c.mem != nil {
		if v, ok := c.mem.Get(k); ok {
			metrics.RegionCacheHitsTotal.WithLabelValues("memory").Inc()
			return v, nil
		}
	}
	if c.rds != nil {
		v, ok, err := c.rds.Get(ctx, k)
		if err != nil {
			logger.L().Warn("region_cache_redis_error", "key", k, "err", err)
		}
		if ok {
			metrics.RegionCacheHitsTotal.WithLabelValues("redis").Inc()
			if c.mem != nil {
				c.mem.Set(k, v)
			}
			return v, nil
		}
	}
	metrics.RegionCacheMissesTotal.Inc()
	return c.Refresh(ctx, tier, parentID)
}

// Refresh 跳过缓存直接查询远端并回写两级缓存；预热与定时刷新使用
func (c *Chain) Refresh(ctx context.Context, tier wilayah.Tier, parentID string) ([]wilayah.Region, error) {
	if tier == wilayah.Province {
		parentID = ""
	}
	k := Key(tier, parentID)
	v, err := c.origin.Children(ctx, tier, parentID)
	if err != nil {
		return nil, err
	}
	if c.mem != nil {
		c.mem.Set(k, v)
	}
	if c.rds != nil {
		if err := c.rds.Set(ctx, k, v); err != nil {
			logger.L().Warn("region_cache_redis_set_error", "key", k, "err", err)
		}
	}
	return v, nil
}
