// 程序入口：仅负责读取配置、初始化依赖并启动服务；接口注册在 internal/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"bansos-api/internal/api"
	"bansos-api/internal/form"
	"bansos-api/internal/geohint"
	"bansos-api/internal/logger"
	"bansos-api/internal/middleware"
	"bansos-api/internal/migrate"
	"bansos-api/internal/regioncache"
	"bansos-api/internal/store"
	"bansos-api/internal/submission"
	"bansos-api/internal/utils"
	"bansos-api/internal/warm"
	"bansos-api/internal/wilayah"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)

	// 数据库可选：未配置时提交走模拟后端，统计接口仅返回活跃表单数
	var st *store.Store
	if utils.PostgresEnabled() {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
		l.Info("db_open_ok")
	} else {
		l.Info("db_disabled")
	}

	rc := utils.OpenRedisFromEnv()
	if rc != nil {
		defer rc.Close()
	}

	regions := regioncache.NewChainFromEnv(wilayah.NewClientFromEnv(), rc)
	hints := geohint.NewResolverFromEnv(regions)
	defer hints.Close()

	forms := form.NewRegistryFromEnv(ctx, regions)
	go forms.Run(ctx)

	deps := api.Deps{
		Forms:    forms,
		Regions:  regions,
		Pipeline: buildPipeline(st, rc),
		Hints:    hints,
		Admin:    middleware.AdminGuardFromEnv().Wrap,
	}
	if st != nil {
		deps.Stats = st
	}

	if os.Getenv("REGION_WARM_ENABLE") == "true" {
		warm.StartWeeklyJakarta(ctx, regions, warm.OptionsFromEnv())
		l.Info("warm_scheduled")
	}

	root := chi.NewRouter()
	root.Use(middleware.RateLimitFromEnv())
	root.Mount(apiBase, api.BuildRoutes(deps))

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	s := &http.Server{Addr: addr, Handler: root, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shCtx); err != nil {
			l.Warn("shutdown_error", "err", err)
		}
	}()

	var err error
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if e := utils.EnsureSelfSignedCert(certPath, keyPath, "bansos-api.local"); e != nil {
			l.Error("tls_cert_error", "err", e)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		err = s.ListenAndServeTLS(certPath, keyPath)
	} else {
		l.Info("listening", "addr", addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}

// buildPipeline：SUBMIT_BACKEND=postgres 且数据库可用时落库，否则使用模拟后端
func buildPipeline(st *store.Store, rc *redis.Client) *submission.Pipeline {
	l := logger.L()
	var (
		backend  submission.Backend
		checker  submission.NIKChecker
		failures submission.FailureRecorder
	)
	if st != nil {
		checker = st
		failures = st
	}
	switch b := os.Getenv("SUBMIT_BACKEND"); {
	case b == "postgres" && st != nil:
		backend = submission.NewStoreBackend(st)
	case b == "postgres":
		l.Warn("submit_backend_fallback", "want", b, "reason", "db_disabled")
		fallthrough
	default:
		backend = submission.NewSimulatedFromEnv()
	}
	l.Info("submit_backend", "type", backendName(backend))
	return submission.NewPipeline(backend, submission.NewDedupGuardFromEnv(rc, checker), failures)
}

func backendName(b submission.Backend) string {
	if _, ok := b.(*submission.StoreBackend); ok {
		return "postgres"
	}
	return "simulate"
}
