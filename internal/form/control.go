package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"bansos-api/internal/location"
	"bansos-api/internal/schema"
	"bansos-api/internal/wilayah"
)

// ErrInvalidValue 控件无法接受该取值（如下拉框未知选项、复选框非布尔值）
var ErrInvalidValue = errors.New("invalid value")

// Kind 字段对应的控件类型
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindSelect
	KindLocation
	KindFile
	KindCheckbox
)

var kindNames = [...]string{"text", "number", "select", "location", "file", "checkbox"}

func (k Kind) String() string {
	if k < KindText || k > KindCheckbox {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Descriptor 供渲染使用的字段描述
type Descriptor struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Kind    Kind     `json:"kind"`
	Choices []string `json:"choices,omitempty"`
	// 仅 KindLocation 使用
	Tier wilayah.Tier `json:"-"`
}

// Descriptors 按表单顺序列出全部字段
var Descriptors = []Descriptor{
	{Name: schema.FieldNama, Label: "Nama", Kind: KindText},
	{Name: schema.FieldNIK, Label: "NIK", Kind: KindText},
	{Name: schema.FieldNoKK, Label: "Nomor KK", Kind: KindText},
	{Name: schema.FieldFotoKTP, Label: "Foto KTP", Kind: KindFile},
	{Name: schema.FieldFotoKK, Label: "Foto KK", Kind: KindFile},
	{Name: schema.FieldUmur, Label: "Umur", Kind: KindNumber},
	{Name: schema.FieldJenisKelamin, Label: "Jenis Kelamin", Kind: KindSelect, Choices: schema.Genders},
	{Name: schema.FieldProvinsi, Label: "Provinsi", Kind: KindLocation, Tier: wilayah.Province},
	{Name: schema.FieldKabKota, Label: "Kabupaten/Kota", Kind: KindLocation, Tier: wilayah.City},
	{Name: schema.FieldKecamatan, Label: "Kecamatan", Kind: KindLocation, Tier: wilayah.District},
	{Name: schema.FieldKelurahan, Label: "Kelurahan/Desa", Kind: KindLocation, Tier: wilayah.Village},
	{Name: schema.FieldAlamat, Label: "Alamat", Kind: KindText},
	{Name: schema.FieldRT, Label: "RT", Kind: KindText},
	{Name: schema.FieldRW, Label: "RW", Kind: KindText},
	{Name: schema.FieldPenghasilanSebelum, Label: "Penghasilan Sebelum Pandemi", Kind: KindNumber},
	{Name: schema.FieldPenghasilanSetelah, Label: "Penghasilan Setelah Pandemi", Kind: KindNumber},
	{Name: schema.FieldAlasanBantuan, Label: "Alasan membutuhkan bantuan", Kind: KindSelect, Choices: schema.Reasons},
	{Name: schema.FieldPernyataan, Label: "Pernyataan", Kind: KindCheckbox},
}

func DescriptorFor(name string) (Descriptor, bool) {
	for _, d := range Descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// LocationField 返回 t 级对应的字段名
func LocationField(t wilayah.Tier) string {
	for _, d := range Descriptors {
		if d.Kind == KindLocation && d.Tier == t {
			return d.Name
		}
	}
	return ""
}

// Control 可设置字段的统一能力
// 约束：表单禁用时 SetValue 不做修改并返回 false
type Control interface {
	Value() string
	SetValue(v string) (bool, error)
	Subscribe(fn func(string)) func()
}

// subscribers 变更回调，按注册顺序执行
type subscribers struct {
	next int
	fns  map[int]func(string)
}

func (s *subscribers) add(fn func(string)) int {
	if s.fns == nil {
		s.fns = make(map[int]func(string))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return id
}

func (s *subscribers) notify(v string) {
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		s.fns[id](v)
	}
}

// scalar 文本、数字、下拉与复选框字段
type scalar struct {
	mu       sync.Mutex
	desc     Descriptor
	value    string
	disabled func() bool
	subs     subscribers
}

func newScalar(d Descriptor, initial string, disabled func() bool) *scalar {
	return &scalar{desc: d, value: initial, disabled: disabled}
}

func (c *scalar) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *scalar) SetValue(v string) (bool, error) {
	switch c.desc.Kind {
	case KindCheckbox:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%s: %w: %q is not a boolean", c.desc.Name, ErrInvalidValue, v)
		}
		v = strconv.FormatBool(b)
	case KindSelect:
		if v != "" && !contains(c.desc.Choices, v) {
			return false, fmt.Errorf("%s: %w: %q is not a choice", c.desc.Name, ErrInvalidValue, v)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled() {
		return false, nil
	}
	c.value = v
	c.subs.notify(v)
	return true, nil
}

func (c *scalar) Subscribe(fn func(string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.subs.add(fn)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs.fns, id)
	}
}

// tierControl 把单级地区适配为 Control
type tierControl struct {
	chain *location.Chain
	tier  wilayah.Tier
}

func (c tierControl) Value() string {
	v, _, _ := c.chain.Resolve(c.tier)
	return v
}

func (c tierControl) SetValue(v string) (bool, error) {
	_, ok, err := c.chain.SetValue(c.tier, v)
	return ok, err
}

func (c tierControl) Subscribe(fn func(string)) func() { return c.chain.Subscribe(c.tier, fn) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
