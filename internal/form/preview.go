package form

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"bansos-api/internal/schema"
	"bansos-api/internal/wilayah"
)

// Item 预览中的一行
type Item struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

const noFile = "Tidak ada file yang diunggah"

var idPrinter = message.NewPrinter(language.Indonesian)

// Rupiah 按印尼习惯格式化金额，如 "Rp 1.500.000"；无法解析时原样返回
func Rupiah(raw string) string {
	n, ok := schema.ParseNumber(raw)
	if !ok {
		return "Rp " + raw
	}
	if math.Abs(n) >= math.MaxInt64 {
		return idPrinter.Sprintf("Rp %.0f", n)
	}
	if n == math.Trunc(n) {
		return idPrinter.Sprintf("Rp %d", int64(n))
	}
	return idPrinter.Sprintf("Rp %.2f", n)
}

// 文档注释：提交前的只读摘要
// 约束：地区行在列表模式下显示地区名，手动模式下显示输入文本。
func (f *Form) Preview() []Section {
	get := func(name string) string { return f.controls[name].Value() }
	loc := f.chain.Snapshots()

	statement := "Tidak Disetujui"
	if get(schema.FieldPernyataan) == "true" {
		statement = "Disetujui"
	}

	docs := Section{Title: "Dokumen"}
	for _, field := range []struct{ name, label string }{
		{schema.FieldFotoKTP, "Foto KTP"},
		{schema.FieldFotoKK, "Foto KK"},
	} {
		v := noFile
		if a, ok := f.Attachment(field.name); ok {
			v = a.Name
		}
		docs.Items = append(docs.Items, Item{Label: field.label, Value: v})
	}

	return []Section{
		{Title: "Informasi Pribadi", Items: []Item{
			{"Nama", get(schema.FieldNama)},
			{"NIK", get(schema.FieldNIK)},
			{"Nomor KK", get(schema.FieldNoKK)},
			{"Umur", get(schema.FieldUmur)},
			{"Jenis Kelamin", get(schema.FieldJenisKelamin)},
		}},
		{Title: "Alamat", Items: []Item{
			{"Provinsi", loc[wilayah.Province].Display},
			{"Kabupaten/Kota", loc[wilayah.City].Display},
			{"Kecamatan", loc[wilayah.District].Display},
			{"Kelurahan/Desa", loc[wilayah.Village].Display},
			{"RT", get(schema.FieldRT)},
			{"RW", get(schema.FieldRW)},
			{"Alamat", get(schema.FieldAlamat)},
		}},
		{Title: "Informasi Finansial", Items: []Item{
			{"Penghasilan Sebelum Pandemi", Rupiah(get(schema.FieldPenghasilanSebelum))},
			{"Penghasilan Setelah Pandemi", Rupiah(get(schema.FieldPenghasilanSetelah))},
		}},
		{Title: "Alasan Bantuan", Items: []Item{
			{"Alasan", get(schema.FieldAlasanBantuan)},
		}},
		{Title: "Pernyataan", Items: []Item{
			{"Persetujuan", statement},
		}},
		docs,
	}
}
