package migrate

import (
	"database/sql"

	"bansos-api/internal/logger"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS bansos_applications (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		nama TEXT NOT NULL,
		nik CHAR(16) NOT NULL,
		no_kk CHAR(16) NOT NULL,
		umur INT NOT NULL,
		jenis_kelamin TEXT NOT NULL,
		provinsi_id TEXT NOT NULL DEFAULT '',
		provinsi TEXT NOT NULL,
		kab_kota_id TEXT NOT NULL DEFAULT '',
		kab_kota TEXT NOT NULL,
		kecamatan_id TEXT NOT NULL DEFAULT '',
		kecamatan TEXT NOT NULL,
		kelurahan_id TEXT NOT NULL DEFAULT '',
		kelurahan TEXT NOT NULL,
		alamat VARCHAR(255) NOT NULL,
		rt TEXT NOT NULL,
		rw TEXT NOT NULL,
		penghasilan_sebelum NUMERIC NOT NULL,
		penghasilan_setelah NUMERIC NOT NULL,
		alasan_bantuan TEXT NOT NULL,
		pernyataan BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_nik ON bansos_applications(nik)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_created ON bansos_applications(created_at)`,
	`CREATE TABLE IF NOT EXISTS bansos_attachments (
		application_id UUID NOT NULL REFERENCES bansos_applications(id) ON DELETE CASCADE,
		field TEXT NOT NULL,
		name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size INT NOT NULL,
		data BYTEA NOT NULL,
		PRIMARY KEY (application_id, field)
	)`,
	`CREATE TABLE IF NOT EXISTS bansos_stats_total (
		id INT PRIMARY KEY,
		total_submissions BIGINT NOT NULL DEFAULT 0,
		total_failures BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS bansos_stats_daily (
		day DATE PRIMARY KEY,
		submissions BIGINT NOT NULL DEFAULT 0
	)`,
	`INSERT INTO bansos_stats_total(id, total_submissions, total_failures)
	 VALUES(1, 0, 0)
	 ON CONFLICT (id) DO NOTHING`,
}

// 背景：首次运行自动创建申请、附件与统计表，保障后续写入
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	for i, s := range statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
