package submission

import (
	"time"

	"bansos-api/internal/form"
	"bansos-api/internal/location"
	"bansos-api/internal/schema"
	"bansos-api/internal/wilayah"
)

// Location 单级地区；手动输入或列表取值未命中选项时 ID 为空
type Location struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Manual bool   `json:"manual"`
}

type Attachment struct {
	Field       string `json:"field"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// Payload 交给后端的完整记录
type Payload struct {
	ID                 string       `json:"id"`
	SubmittedAt        time.Time    `json:"submittedAt"`
	Nama               string       `json:"nama"`
	NIK                string       `json:"nik"`
	NoKK               string       `json:"noKK"`
	Umur               int          `json:"umur"`
	JenisKelamin       string       `json:"jenisKelamin"`
	Provinsi           Location     `json:"provinsi"`
	KabKota            Location     `json:"kabKota"`
	Kecamatan          Location     `json:"kecamatan"`
	Kelurahan          Location     `json:"kelurahan"`
	Alamat             string       `json:"alamat"`
	RT                 string       `json:"rt"`
	RW                 string       `json:"rw"`
	PenghasilanSebelum float64      `json:"penghasilanSebelum"`
	PenghasilanSetelah float64      `json:"penghasilanSetelah"`
	AlasanBantuan      string       `json:"alasanBantuan"`
	Pernyataan         bool         `json:"pernyataan"`
	Attachments        []Attachment `json:"attachments"`
}

// BuildPayload 从已校验的表单组装记录
// 约束：数值文本已通过校验，此处不再处理解析失败
func BuildPayload(f *form.Form, id string, at time.Time) Payload {
	v := f.Values()
	num := func(s string) float64 {
		n, _ := schema.ParseNumber(s)
		return n
	}
	p := Payload{
		ID:                 id,
		SubmittedAt:        at,
		Nama:               v.Nama,
		NIK:                v.NIK,
		NoKK:               v.NoKK,
		Umur:               int(num(v.Umur)),
		JenisKelamin:       v.JenisKelamin,
		Provinsi:           resolve(f, wilayah.Province),
		KabKota:            resolve(f, wilayah.City),
		Kecamatan:          resolve(f, wilayah.District),
		Kelurahan:          resolve(f, wilayah.Village),
		Alamat:             v.Alamat,
		RT:                 v.RT,
		RW:                 v.RW,
		PenghasilanSebelum: num(v.PenghasilanSebelum),
		PenghasilanSetelah: num(v.PenghasilanSetelah),
		AlasanBantuan:      v.AlasanBantuan,
		Pernyataan:         v.Pernyataan,
	}
	for _, field := range []string{schema.FieldFotoKTP, schema.FieldFotoKK} {
		if a, ok := f.Attachment(field); ok {
			p.Attachments = append(p.Attachments, Attachment{
				Field:       field,
				Name:        a.Name,
				ContentType: a.ContentType,
				Size:        a.Size,
				Data:        a.Data,
			})
		}
	}
	return p
}

func resolve(f *form.Form, t wilayah.Tier) Location {
	value, region, listed := f.Chain().Resolve(t)
	if listed {
		return Location{ID: value, Name: region.Name}
	}
	return Location{Name: value, Manual: f.Chain().Snapshot(t).Mode == location.Manual}
}
