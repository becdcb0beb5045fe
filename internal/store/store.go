// 包 store: 提供与 PostgreSQL 的数据访问层，包含申请记录写入、导出读取与统计
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bansos-api/internal/logger"
)

// Store: 数据库访问入口，持有连接池并提供写入/统计接口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Attachment: 申请附件（KTP/KK 照片），随申请在同一事务内写入
type Attachment struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Application: 一条已提交的援助申请；地区字段同时保存 id 与显示名，手动输入时 id 为空
type Application struct {
	ID                 string
	CreatedAt          time.Time
	Nama               string
	NIK                string
	NoKK               string
	Umur               int
	JenisKelamin       string
	ProvinsiID         string
	Provinsi           string
	KabKotaID          string
	KabKota            string
	KecamatanID        string
	Kecamatan          string
	KelurahanID        string
	Kelurahan          string
	Alamat             string
	RT                 string
	RW                 string
	PenghasilanSebelum float64
	PenghasilanSetelah float64
	AlasanBantuan      string
	Pernyataan         bool
	Attachments        []Attachment
}

const insertApplication = `INSERT INTO bansos_applications(
	id, created_at, nama, nik, no_kk, umur, jenis_kelamin,
	provinsi_id, provinsi, kab_kota_id, kab_kota, kecamatan_id, kecamatan, kelurahan_id, kelurahan,
	alamat, rt, rw, penghasilan_sebelum, penghasilan_setelah, alasan_bantuan, pernyataan)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`

const insertAttachment = `INSERT INTO bansos_attachments(application_id, field, name, content_type, size, data) VALUES($1,$2,$3,$4,$5,$6)`

// InsertApplication: 事务内写入申请、附件并递增统计；任一步失败整体回滚
func (s *Store) InsertApplication(ctx context.Context, a *Application) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertApplication,
		a.ID, a.CreatedAt, a.Nama, a.NIK, a.NoKK, a.Umur, a.JenisKelamin,
		a.ProvinsiID, a.Provinsi, a.KabKotaID, a.KabKota, a.KecamatanID, a.Kecamatan, a.KelurahanID, a.Kelurahan,
		a.Alamat, a.RT, a.RW, a.PenghasilanSebelum, a.PenghasilanSetelah, a.AlasanBantuan, a.Pernyataan,
	); err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	for _, at := range a.Attachments {
		if _, err := tx.ExecContext(ctx, insertAttachment, a.ID, at.Field, at.Name, at.ContentType, len(at.Data), at.Data); err != nil {
			return fmt.Errorf("insert attachment %s: %w", at.Field, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE bansos_stats_total SET total_submissions=total_submissions+1 WHERE id=1"); err != nil {
		return fmt.Errorf("stats total: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO bansos_stats_daily(day, submissions) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET submissions=bansos_stats_daily.submissions+1"); err != nil {
		return fmt.Errorf("stats daily: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.L().Debug("db_application_insert", "id", a.ID, "attachments", len(a.Attachments))
	return nil
}

// NIKExists: 判断该 NIK 是否已有申请，供去重判定的确认步骤使用
func (s *Store) NIKExists(ctx context.Context, nik string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM bansos_applications WHERE nik=$1 LIMIT 1", nik).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListApplications: 读取 since 之后（含）的申请，按创建时间升序；不加载附件内容
func (s *Store) ListApplications(ctx context.Context, since time.Time) ([]Application, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, nama, nik, no_kk, umur, jenis_kelamin,
	provinsi_id, provinsi, kab_kota_id, kab_kota, kecamatan_id, kecamatan, kelurahan_id, kelurahan,
	alamat, rt, rw, penghasilan_sebelum, penghasilan_setelah, alasan_bantuan, pernyataan
FROM bansos_applications WHERE created_at >= $1 ORDER BY created_at ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Application
	for rows.Next() {
		var a Application
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Nama, &a.NIK, &a.NoKK, &a.Umur, &a.JenisKelamin,
			&a.ProvinsiID, &a.Provinsi, &a.KabKotaID, &a.KabKota, &a.KecamatanID, &a.Kecamatan, &a.KelurahanID, &a.Kelurahan,
			&a.Alamat, &a.RT, &a.RW, &a.PenghasilanSebelum, &a.PenghasilanSetelah, &a.AlasanBantuan, &a.Pernyataan); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("db_application_list", "since", since, "count", len(out))
	return out, nil
}

// IncrFailure: 提交失败时递增失败计数；统计不影响主流程，错误仅记录
func (s *Store) IncrFailure(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, "UPDATE bansos_stats_total SET total_failures=total_failures+1 WHERE id=1"); err != nil {
		logger.L().Warn("stats_failure_incr_error", "err", err)
	}
}

// Totals: 统计返回结构，包含累计提交、累计失败与当日提交次数
type Totals struct {
	Total    int64 `json:"total"`
	Failures int64 `json:"failures"`
	Today    int64 `json:"today"`
}

// GetTotals: 读取累计与当日提交次数，用于接口返回；当日无记录视为 0
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	row := s.db.QueryRowContext(ctx, "SELECT total_submissions, total_failures FROM bansos_stats_total WHERE id=1")
	if err := row.Scan(&t.Total, &t.Failures); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	row2 := s.db.QueryRowContext(ctx, "SELECT submissions FROM bansos_stats_daily WHERE day=current_date")
	if err := row2.Scan(&t.Today); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
