// 包 schema：申请表字段名、性别与理由选项，以及带印尼语提示的校验规则
package schema

import (
	"math"
	"sort"
	"strings"

	"github.com/asaskevich/govalidator"
)

// 字段名，与接口及校验结果中的键一致
const (
	FieldNama               = "nama"
	FieldNIK                = "nik"
	FieldNoKK               = "noKK"
	FieldFotoKTP            = "fotoKTP"
	FieldFotoKK             = "fotoKK"
	FieldUmur               = "umur"
	FieldJenisKelamin       = "jenisKelamin"
	FieldProvinsi           = "provinsi"
	FieldKabKota            = "kabKota"
	FieldKecamatan          = "kecamatan"
	FieldKelurahan          = "kelurahan"
	FieldAlamat             = "alamat"
	FieldRT                 = "rt"
	FieldRW                 = "rw"
	FieldPenghasilanSebelum = "penghasilanSebelum"
	FieldPenghasilanSetelah = "penghasilanSetelah"
	FieldAlasanBantuan      = "alasanBantuan"
	FieldPernyataan         = "pernyataan"
)

// Fields 按表单顺序列出全部字段
var Fields = []string{
	FieldNama, FieldNIK, FieldNoKK, FieldFotoKTP, FieldFotoKK, FieldUmur,
	FieldJenisKelamin, FieldProvinsi, FieldKabKota, FieldKecamatan,
	FieldKelurahan, FieldAlamat, FieldRT, FieldRW, FieldPenghasilanSebelum,
	FieldPenghasilanSetelah, FieldAlasanBantuan, FieldPernyataan,
}

const (
	GenderMale   = "Laki-laki"
	GenderFemale = "Perempuan"
)

var Genders = []string{GenderMale, GenderFemale}

// 固定理由；选择 ReasonOther 会把理由控件切换为自由文本，其本身不作为取值保存
const (
	ReasonJobLoss   = "Kehilangan pekerjaan"
	ReasonHousehold = "Kepala keluarga"
	ReasonPoor      = "Tergolong fakir/miskin"
	ReasonOther     = "Lainnya"
)

var Reasons = []string{ReasonJobLoss, ReasonHousehold, ReasonPoor, ReasonOther}

// IsFixedReason 报告 v 是否为三个固定理由之一
func IsFixedReason(v string) bool {
	switch v {
	case ReasonJobLoss, ReasonHousehold, ReasonPoor:
		return true
	}
	return false
}

// 年龄、地址长度与附件大小限制
const (
	MinAge          = 25
	MaxAge          = 150
	MaxAddressRunes = 255
	MaxFileSize     = 2 * 1024 * 1024
)

// AllowedImageTypes 可接受的附件类型
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/bmp"}

// File 附件元信息，不含文件内容
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Values 提交前参与校验的扁平记录
// 约束：数值字段保留申请人输入的原文；四级地区在列表模式下为 id，手动模式下为自由文本
// ReasonOther 表示理由控件当前处于自由文本模式
type Values struct {
	Nama               string
	NIK                string
	NoKK               string
	FotoKTP            *File
	FotoKK             *File
	Umur               string
	JenisKelamin       string
	Provinsi           string
	KabKota            string
	Kecamatan          string
	Kelurahan          string
	Alamat             string
	RT                 string
	RW                 string
	PenghasilanSebelum string
	PenghasilanSetelah string
	AlasanBantuan      string
	ReasonOther        bool
	Pernyataan         bool
}

// Errors 字段名 → 首个未通过规则的提示
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate 校验全部字段；可提交时返回 nil
func Validate(v Values) Errors {
	errs := Errors{}
	add := func(field, msg string) {
		if msg != "" {
			errs[field] = msg
		}
	}

	if v.Nama == "" {
		add(FieldNama, "Nama harus diisi")
	}
	add(FieldNIK, checkID(v.NIK, "NIK harus diisi", "NIK harus 16 digit"))
	add(FieldNoKK, checkID(v.NoKK, "KK harus diisi", "Nomor KK harus 16 digit"))
	add(FieldFotoKTP, checkFile(v.FotoKTP, "Foto KTP harus diunggah"))
	add(FieldFotoKK, checkFile(v.FotoKK, "Foto KK harus diunggah"))
	add(FieldUmur, checkAge(v.Umur))

	if v.JenisKelamin != GenderMale && v.JenisKelamin != GenderFemale {
		add(FieldJenisKelamin, "Jenis kelamin harus dipilih")
	}

	// 地区只要求非空，与模式无关
	if v.Provinsi == "" {
		add(FieldProvinsi, "Pilih atau isi provinsi")
	}
	if v.KabKota == "" {
		add(FieldKabKota, "Pilih atau isi kabupaten/kota")
	}
	if v.Kecamatan == "" {
		add(FieldKecamatan, "Pilih atau isi kecamatan")
	}
	if v.Kelurahan == "" {
		add(FieldKelurahan, "Pilih atau isi kelurahan/desa")
	}

	switch {
	case v.Alamat == "":
		add(FieldAlamat, "Alamat harus diisi")
	case !govalidator.StringLength(v.Alamat, "1", "255"):
		add(FieldAlamat, "Alamat maksimal 255 karakter")
	}
	if v.RT == "" {
		add(FieldRT, "RT harus diisi")
	}
	if v.RW == "" {
		add(FieldRW, "RW harus diisi")
	}

	add(FieldPenghasilanSebelum, checkIncome(v.PenghasilanSebelum))
	add(FieldPenghasilanSetelah, checkIncome(v.PenghasilanSetelah))

	// 自由文本模式下任何非空文本均可，包括字面量 "Lainnya"
	if v.AlasanBantuan == "" || (v.AlasanBantuan == ReasonOther && !v.ReasonOther) {
		add(FieldAlasanBantuan, "Alasan harus diisi jika memilih 'Lainnya'")
	}
	if !v.Pernyataan {
		add(FieldPernyataan, "Anda harus menyetujui pernyataan ini")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ParseNumber 解析申请人输入的数值文本，允许首尾空格
// 约束：仅接受十进制写法（可带符号、小数与指数），超出 float64 范围视为无效
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !govalidator.IsFloat(s) {
		return 0, false
	}
	n, err := govalidator.ToFloat(s)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func checkID(s, emptyMsg, lenMsg string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return emptyMsg
	}
	if !govalidator.IsNumeric(s) || !govalidator.StringLength(s, "16", "16") {
		return lenMsg
	}
	return ""
}

func checkAge(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Umur harus diisi"
	}
	n, ok := ParseNumber(s)
	if !ok {
		return "Umur harus berupa angka"
	}
	if n < MinAge {
		return "Umur minimal 25 tahun"
	}
	if n > MaxAge {
		return "Umur maksimal 150 tahun"
	}
	return ""
}

// checkIncome：上限为 int64 可表示范围，保证落库与展示时的整数转换不溢出
func checkIncome(s string) string {
	n, ok := ParseNumber(s)
	if !ok {
		return "Penghasilan harus berupa angka"
	}
	if n < 0 {
		return "Penghasilan tidak boleh negatif"
	}
	if n >= math.MaxInt64 {
		return "Penghasilan terlalu besar"
	}
	return ""
}

func checkFile(f *File, missingMsg string) string {
	if f == nil {
		return missingMsg
	}
	if f.Size > MaxFileSize {
		return "Ukuran file maksimal 2MB"
	}
	if !AllowedImageType(f.ContentType) {
		return "Format file harus JPG, PNG, atau BMP"
	}
	return ""
}

// AllowedImageType 忽略参数部分后判断 ct 是否可接受
func AllowedImageType(ct string) bool {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	for _, a := range AllowedImageTypes {
		if ct == a {
			return true
		}
	}
	return false
}
