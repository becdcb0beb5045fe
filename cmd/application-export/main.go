package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"bansos-api/internal/export"
	"bansos-api/internal/logger"
	"bansos-api/internal/store"
	"bansos-api/internal/utils"
)

// 文档注释：导出申请记录为 xlsx
// 背景：发放单位按周核对申请人名单，需要可离线查看的表格。
// 约束：EXPORT_SINCE 为 YYYY-MM-DD（Asia/Jakarta），默认最近 7 天；EXPORT_PATH 默认 bansos-<日期>.xlsx；不导出附件。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*3600)
	}
	now := time.Now().In(loc)
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -7)
	if s := os.Getenv("EXPORT_SINCE"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			l.Error("export_since_invalid", "value", s, "err", err)
			os.Exit(1)
		}
		since = t
	}
	path := os.Getenv("EXPORT_PATH")
	if path == "" {
		path = "bansos-" + now.Format("20060102") + ".xlsx"
	}

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	apps, err := store.AttachDB(db).ListApplications(ctx, since)
	if err != nil {
		l.Error("export_query_error", "err", err)
		os.Exit(1)
	}

	out, err := os.Create(path)
	if err != nil {
		l.Error("export_create_error", "path", path, "err", err)
		os.Exit(1)
	}
	if err := export.WriteApplications(out, apps); err != nil {
		_ = out.Close()
		l.Error("export_write_error", "err", err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		l.Error("export_close_error", "err", err)
		os.Exit(1)
	}
	l.Info("export_done", "path", path, "since", since.Format("2006-01-02"), "count", len(apps))
}
