package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bansos-api/internal/store"
)

func TestWriteApplications(t *testing.T) {
	apps := []store.Application{{
		ID:                 "app-1",
		CreatedAt:          time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Nama:               "Budi Santoso",
		NIK:                "3201010101900001",
		NoKK:               "3201010101900002",
		Umur:               40,
		JenisKelamin:       "Laki-laki",
		Provinsi:           "Jawa Barat",
		KabKota:            "Kabupaten Bogor",
		Kecamatan:          "Nanggung",
		Kelurahan:          "Curugbitung",
		Alamat:             "Jl. Raya Nanggung 12",
		RT:                 "003",
		RW:                 "005",
		PenghasilanSebelum: 1500000,
		AlasanBantuan:      "Kehilangan pekerjaan",
		Pernyataan:         true,
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteApplications(&buf, apps))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "app-1", rows[1][0])
	assert.Equal(t, "2026-03-02 09:30", rows[1][1])
	assert.Equal(t, "3201010101900001", rows[1][3])
	assert.Equal(t, "Curugbitung", rows[1][10])
	assert.Equal(t, "003", rows[1][12])
	assert.Equal(t, "Ya", rows[1][17])
}

func TestWriteApplicationsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteApplications(&buf, nil))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
