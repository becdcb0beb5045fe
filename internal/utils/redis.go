package utils

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"bansos-api/internal/logger"
)

// OpenRedisFromEnv：REDIS_ENABLED=true 时连接 REDIS_HOST:REDIS_PORT，支持 REDIS_PASS 与 REDIS_DB
// 约束：未启用或探活失败时返回 nil，地区缓存与 NIK 去重随之降级为仅内存/关闭
func OpenRedisFromEnv() *redis.Client {
	l := logger.L()
	if os.Getenv("REDIS_ENABLED") != "true" {
		l.Info("redis_disabled")
		return nil
	}
	addr := envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379")
	db := envInt("REDIS_DB", 0)
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		l.Warn("redis_ping_error", "addr", addr, "err", err)
		_ = rc.Close()
		return nil
	}
	l.Info("redis_ping_ok", "addr", addr, "db", db)
	return rc
}
