package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, AttachDB(db)
}

func sampleApplication() *Application {
	return &Application{
		ID:                 "0b0e6c5e-2f4a-4d8e-9a53-6f1c2d3e4f50",
		CreatedAt:          time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Nama:               "Budi Santoso",
		NIK:                "3201010101900001",
		NoKK:               "3201010101900002",
		Umur:               40,
		JenisKelamin:       "Laki-laki",
		ProvinsiID:         "32",
		Provinsi:           "Jawa Barat",
		KabKotaID:          "3201",
		KabKota:            "Kabupaten Bogor",
		KecamatanID:        "3201010",
		Kecamatan:          "Nanggung",
		Kelurahan:          "Kampung Baru",
		Alamat:             "Jl. Raya Nanggung 12",
		RT:                 "003",
		RW:                 "005",
		PenghasilanSebelum: 1500000,
		AlasanBantuan:      "Kehilangan pekerjaan",
		Pernyataan:         true,
		Attachments: []Attachment{
			{Field: "fotoKTP", Name: "ktp.png", ContentType: "image/png", Data: []byte{1, 2, 3}},
			{Field: "fotoKK", Name: "kk.png", ContentType: "image/png", Data: []byte{4, 5}},
		},
	}
}

func TestInsertApplication_Success(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()
	a := sampleApplication()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bansos_applications`).
		WithArgs(a.ID, a.CreatedAt, a.Nama, a.NIK, a.NoKK, a.Umur, a.JenisKelamin,
			a.ProvinsiID, a.Provinsi, a.KabKotaID, a.KabKota, a.KecamatanID, a.Kecamatan, "", a.Kelurahan,
			a.Alamat, a.RT, a.RW, a.PenghasilanSebelum, a.PenghasilanSetelah, a.AlasanBantuan, a.Pernyataan).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bansos_attachments`).
		WithArgs(a.ID, "fotoKTP", "ktp.png", "image/png", 3, []byte{1, 2, 3}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bansos_attachments`).
		WithArgs(a.ID, "fotoKK", "kk.png", "image/png", 2, []byte{4, 5}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bansos_stats_total SET total_submissions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bansos_stats_daily`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.InsertApplication(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertApplication_RollsBackOnAttachmentError(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bansos_applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bansos_attachments`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.InsertApplication(context.Background(), sampleApplication())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert attachment fotoKTP")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNIKExists(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1 FROM bansos_applications`).
		WithArgs("3201010101900001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM bansos_applications`).
		WithArgs("3201010101900009").
		WillReturnError(sql.ErrNoRows)

	ok, err := s.NIKExists(context.Background(), "3201010101900001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.NIKExists(context.Background(), "3201010101900009")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApplications(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "created_at", "nama", "nik", "no_kk", "umur", "jenis_kelamin",
		"provinsi_id", "provinsi", "kab_kota_id", "kab_kota", "kecamatan_id", "kecamatan", "kelurahan_id", "kelurahan",
		"alamat", "rt", "rw", "penghasilan_sebelum", "penghasilan_setelah", "alasan_bantuan", "pernyataan"}
	rows := sqlmock.NewRows(cols).
		AddRow("a1", since.Add(time.Hour), "Budi", "3201010101900001", "3201010101900002", 40, "Laki-laki",
			"32", "Jawa Barat", "3201", "Kabupaten Bogor", "3201010", "Nanggung", "", "Kampung Baru",
			"Jl. Raya 1", "003", "005", 1500000.0, 0.0, "Kepala keluarga", true)

	mock.ExpectQuery(`SELECT id, created_at`).WithArgs(since).WillReturnRows(rows)

	apps, err := s.ListApplications(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "Kampung Baru", apps[0].Kelurahan)
	assert.Empty(t, apps[0].KelurahanID)
	assert.Equal(t, 1500000.0, apps[0].PenghasilanSebelum)
	assert.True(t, apps[0].Pernyataan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTotals(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT total_submissions, total_failures FROM bansos_stats_total`).
		WillReturnRows(sqlmock.NewRows([]string{"total_submissions", "total_failures"}).AddRow(12, 3))
	mock.ExpectQuery(`SELECT submissions FROM bansos_stats_daily`).
		WillReturnError(sql.ErrNoRows)

	got, err := s.GetTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Totals{Total: 12, Failures: 3, Today: 0}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrFailure_ErrorIsSwallowed(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE bansos_stats_total SET total_failures`).WillReturnError(errors.New("down"))
	s.IncrFailure(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}
