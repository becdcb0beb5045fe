package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bansos-api/internal/logger"
	"bansos-api/internal/regioncache"
	"bansos-api/internal/utils"
	"bansos-api/internal/warm"
	"bansos-api/internal/wilayah"
)

// 文档注释：一次性预热地区缓存
// 背景：服务首次上线或 Redis 清空后，先行拉取省/市县/区三级列表写入 Redis，避免首批表单集中回源。
// 约束：需要 REDIS_ENABLED=true，否则结果仅留在本进程内存中，退出即失效；深度与并发读取 REGION_WARM_DEPTH/REGION_WARM_CONCURRENCY。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Error("redis_required")
		os.Exit(1)
	}
	defer rc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	regions := regioncache.NewChainFromEnv(wilayah.NewClientFromEnv(), rc)
	opt := warm.OptionsFromEnv()
	l.Info("warm_begin", "depth", opt.Depth.String(), "concurrency", opt.Concurrency)
	rep, err := warm.Run(ctx, regions, opt)
	if err != nil {
		l.Error("warm_error", "err", err, "requests", rep.Requests, "failures", rep.Failures)
		os.Exit(1)
	}
	l.Info("warm_done", "requests", rep.Requests, "failures", rep.Failures, "regions", rep.Regions, "elapsed_ms", rep.Elapsed.Milliseconds())
}
