package regioncache

import (
	"context"
	"encoding/json"
	"time"

	"bansos-api/internal/wilayah"

	"github.com/redis/go-redis/v9"
)

// 文档注释：Redis 二级缓存
// 背景：多实例部署时共享子级列表，进程重启后仍可命中；值为 JSON 数组。
// 异常：rc 为 nil 时 Get 恒未命中、Set 为空操作，避免阻断主流程。
type Redis struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(rc *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rc: rc, prefix: "wilayah:", ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, k string) ([]wilayah.Region, bool, error) {
	if r == nil || r.rc == nil {
		return nil, false, nil
	}
	s, err := r.rc.Get(ctx, r.prefix+k).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []wilayah.Region
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (r *Redis) Set(ctx context.Context, k string, v []wilayah.Region) error {
	if r == nil || r.rc == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.rc.Set(ctx, r.prefix+k, string(b), r.ttl).Err()
}
