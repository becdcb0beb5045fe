package submission

import (
	"context"
	"hash/fnv"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bansos-api/internal/logger"
)

// 文档注释：计算布隆过滤器位置
// 参数：data 为参与哈希的字节序列，m 为位图大小，k 为哈希次数（控制误判率与写入开销）。
// 背景：使用 FNV64a 结合索引扰动生成 k 个位置，用于 GetBit/SetBit。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(uint32(h.Sum64() % uint64(m)))
	}
	return pos
}

// NIKChecker 确认某 NIK 是否确实已提交过，用于排除布隆过滤器的误判
type NIKChecker interface {
	NIKExists(ctx context.Context, nik string) (bool, error)
}

// DedupGuard 基于 Redis 位图的重复 NIK 拦截
// 背景：同一 NIK 重复提交会被拒绝；位图命中后若配置了 checker 则再查库确认
// 约束：rc 为 nil 时视为“允许提交”，Redis 错误同样放行，避免阻断主流程
type DedupGuard struct {
	rc      *redis.Client
	checker NIKChecker
	key     string
	m       uint32
	k       int
	ttl     time.Duration
}

func NewDedupGuard(rc *redis.Client, checker NIKChecker, ttl time.Duration) *DedupGuard {
	return &DedupGuard{rc: rc, checker: checker, key: "bansos:nik:bloom", m: 1 << 24, k: 4, ttl: ttl}
}

// NewDedupGuardFromEnv：SUBMIT_DEDUP_ENABLED=true 时启用，SUBMIT_DEDUP_TTL_S 默认 30 天；未启用返回 nil
func NewDedupGuardFromEnv(rc *redis.Client, checker NIKChecker) *DedupGuard {
	if os.Getenv("SUBMIT_DEDUP_ENABLED") != "true" || rc == nil {
		return nil
	}
	ttl := 30 * 24 * time.Hour
	if v := os.Getenv("SUBMIT_DEDUP_TTL_S"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	return NewDedupGuard(rc, checker, ttl)
}

// Seen：true 表示该 NIK 已提交过
func (g *DedupGuard) Seen(ctx context.Context, nik string) (bool, error) {
	if g == nil || g.rc == nil {
		return false, nil
	}
	for _, p := range bloomPositions([]byte(nik), g.m, g.k) {
		b, err := g.rc.GetBit(ctx, g.key, p).Result()
		if err != nil {
			return false, err
		}
		if b == 0 {
			return false, nil
		}
	}
	if g.checker == nil {
		return true, nil
	}
	ok, err := g.checker.NIKExists(ctx, nik)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.L().Debug("dedup_false_positive", "nik_hash", bloomPositions([]byte(nik), g.m, 1)[0])
	}
	return ok, nil
}

// Mark：提交成功后写入位图并刷新过期时间
func (g *DedupGuard) Mark(ctx context.Context, nik string) error {
	if g == nil || g.rc == nil {
		return nil
	}
	_, err := g.rc.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range bloomPositions([]byte(nik), g.m, g.k) {
			pipe.SetBit(ctx, g.key, p, 1)
		}
		pipe.Expire(ctx, g.key, g.ttl)
		return nil
	})
	return err
}
