package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validValues() Values {
	img := &File{Name: "ktp.jpg", ContentType: "image/jpeg", Size: 1024}
	return Values{
		Nama:               "Siti Aminah",
		NIK:                "3201010101900001",
		NoKK:               "3201010101900002",
		FotoKTP:            img,
		FotoKK:             &File{Name: "kk.png", ContentType: "image/png", Size: 2048},
		Umur:               "31",
		JenisKelamin:       GenderFemale,
		Provinsi:           "32",
		KabKota:            "3201",
		Kecamatan:          "3201010",
		Kelurahan:          "Desa Karangan",
		Alamat:             "Jl. Merdeka No. 1",
		RT:                 "001",
		RW:                 "002",
		PenghasilanSebelum: "1500000",
		PenghasilanSetelah: "0",
		AlasanBantuan:      ReasonJobLoss,
		Pernyataan:         true,
	}
}

func TestValidate_OK(t *testing.T) {
	assert.Nil(t, Validate(validValues()))
}

func TestValidate_Messages(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Values)
		field string
		msg   string
	}{
		{"nama empty", func(v *Values) { v.Nama = "" }, FieldNama, "Nama harus diisi"},
		{"nik empty", func(v *Values) { v.NIK = "" }, FieldNIK, "NIK harus diisi"},
		{"nik default zero", func(v *Values) { v.NIK = "0" }, FieldNIK, "NIK harus 16 digit"},
		{"nik letters", func(v *Values) { v.NIK = "32010101019000ab" }, FieldNIK, "NIK harus 16 digit"},
		{"kk empty", func(v *Values) { v.NoKK = "" }, FieldNoKK, "KK harus diisi"},
		{"kk short", func(v *Values) { v.NoKK = "123" }, FieldNoKK, "Nomor KK harus 16 digit"},
		{"ktp missing", func(v *Values) { v.FotoKTP = nil }, FieldFotoKTP, "Foto KTP harus diunggah"},
		{"kk missing", func(v *Values) { v.FotoKK = nil }, FieldFotoKK, "Foto KK harus diunggah"},
		{"ktp too big", func(v *Values) { v.FotoKTP = &File{ContentType: "image/png", Size: MaxFileSize + 1} }, FieldFotoKTP, "Ukuran file maksimal 2MB"},
		{"kk wrong type", func(v *Values) { v.FotoKK = &File{ContentType: "application/pdf", Size: 10} }, FieldFotoKK, "Format file harus JPG, PNG, atau BMP"},
		{"umur empty", func(v *Values) { v.Umur = "" }, FieldUmur, "Umur harus diisi"},
		{"umur young", func(v *Values) { v.Umur = "24" }, FieldUmur, "Umur minimal 25 tahun"},
		{"umur text", func(v *Values) { v.Umur = "dua puluh" }, FieldUmur, "Umur harus berupa angka"},
		{"umur old", func(v *Values) { v.Umur = "151" }, FieldUmur, "Umur maksimal 150 tahun"},
		{"umur exponent", func(v *Values) { v.Umur = "1e20" }, FieldUmur, "Umur maksimal 150 tahun"},
		{"gender", func(v *Values) { v.JenisKelamin = "" }, FieldJenisKelamin, "Jenis kelamin harus dipilih"},
		{"provinsi", func(v *Values) { v.Provinsi = "" }, FieldProvinsi, "Pilih atau isi provinsi"},
		{"kabKota", func(v *Values) { v.KabKota = "" }, FieldKabKota, "Pilih atau isi kabupaten/kota"},
		{"kecamatan", func(v *Values) { v.Kecamatan = "" }, FieldKecamatan, "Pilih atau isi kecamatan"},
		{"kelurahan", func(v *Values) { v.Kelurahan = "" }, FieldKelurahan, "Pilih atau isi kelurahan/desa"},
		{"alamat empty", func(v *Values) { v.Alamat = "" }, FieldAlamat, "Alamat harus diisi"},
		{"alamat long", func(v *Values) { v.Alamat = strings.Repeat("a", 256) }, FieldAlamat, "Alamat maksimal 255 karakter"},
		{"rt", func(v *Values) { v.RT = "" }, FieldRT, "RT harus diisi"},
		{"rw", func(v *Values) { v.RW = "" }, FieldRW, "RW harus diisi"},
		{"income negative", func(v *Values) { v.PenghasilanSebelum = "-1" }, FieldPenghasilanSebelum, "Penghasilan tidak boleh negatif"},
		{"income text", func(v *Values) { v.PenghasilanSetelah = "banyak" }, FieldPenghasilanSetelah, "Penghasilan harus berupa angka"},
		{"income beyond int64", func(v *Values) { v.PenghasilanSebelum = "1e20" }, FieldPenghasilanSebelum, "Penghasilan terlalu besar"},
		{"nik wide digits", func(v *Values) { v.NIK = "３２０１０１０１０１９０００１" }, FieldNIK, "NIK harus 16 digit"},
		{"reason empty", func(v *Values) { v.AlasanBantuan = "" }, FieldAlasanBantuan, "Alasan harus diisi jika memilih 'Lainnya'"},
		{"reason other picked", func(v *Values) { v.AlasanBantuan = ReasonOther }, FieldAlasanBantuan, "Alasan harus diisi jika memilih 'Lainnya'"},
		{"reason free text empty", func(v *Values) { v.AlasanBantuan, v.ReasonOther = "", true }, FieldAlasanBantuan, "Alasan harus diisi jika memilih 'Lainnya'"},
		{"statement", func(v *Values) { v.Pernyataan = false }, FieldPernyataan, "Anda harus menyetujui pernyataan ini"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := validValues()
			tc.edit(&v)
			errs := Validate(v)
			require.Len(t, errs, 1, "%v", errs)
			assert.Equal(t, tc.msg, errs[tc.field])
		})
	}
}

func TestValidate_LocationNeedsValueInAnyMode(t *testing.T) {
	v := validValues()
	// 手动文本与 id 同样通过
	v.Provinsi = "Custom Province"
	assert.Nil(t, Validate(v))

	v.Provinsi, v.KabKota, v.Kecamatan, v.Kelurahan = "", "", "", ""
	errs := Validate(v)
	assert.Len(t, errs, 4)
}

func TestValidate_FreeTextReasonAccepted(t *testing.T) {
	v := validValues()
	v.AlasanBantuan = "Rumah terkena banjir"
	assert.Nil(t, Validate(v))
}

func TestValidate_FreeTextMayReadLainnya(t *testing.T) {
	v := validValues()
	v.ReasonOther = true
	v.AlasanBantuan = ReasonOther
	assert.Nil(t, Validate(v))
}

func TestValidate_IncomeUpperBound(t *testing.T) {
	v := validValues()
	v.PenghasilanSebelum = "9000000000000000000"
	assert.Nil(t, Validate(v))
	v.PenghasilanSebelum = "9223372036854775808"
	assert.Equal(t, "Penghasilan terlalu besar", Validate(v)[FieldPenghasilanSebelum])
}

func TestValidate_AlamatCountsRunes(t *testing.T) {
	v := validValues()
	v.Alamat = strings.Repeat("é", MaxAddressRunes)
	assert.Nil(t, Validate(v))
}

func TestErrors_Error(t *testing.T) {
	errs := Errors{FieldRW: "RW harus diisi", FieldNama: "Nama harus diisi"}
	assert.Equal(t, "validation failed: nama: Nama harus diisi; rw: RW harus diisi", errs.Error())
}

func TestParseNumber(t *testing.T) {
	n, ok := ParseNumber(" 25 ")
	assert.True(t, ok)
	assert.Equal(t, 25.0, n)

	n, ok = ParseNumber("1.5e3")
	assert.True(t, ok)
	assert.Equal(t, 1500.0, n)

	for _, s := range []string{"", "abc", "NaN", "Inf", ".", "0x10", "1e400", "1_000"} {
		_, ok := ParseNumber(s)
		assert.False(t, ok, s)
	}
}

func TestAllowedImageType(t *testing.T) {
	assert.True(t, AllowedImageType("image/JPEG"))
	assert.True(t, AllowedImageType("image/png; charset=binary"))
	assert.False(t, AllowedImageType("image/gif"))
}
