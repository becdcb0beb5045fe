// Package form 申请表聚合：普通控件、理由控件、四级地区与两份附件共用一把表单级禁用锁，另含内存会话注册表。
package form

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"bansos-api/internal/location"
	"bansos-api/internal/logger"
	"bansos-api/internal/schema"
	"bansos-api/internal/wilayah"
)

var (
	ErrNotFound     = errors.New("form not found")
	ErrDisabled     = errors.New("form is disabled")
	ErrUnknownField = errors.New("unknown field")
)

// Defaults 普通控件的初始值
var Defaults = map[string]string{
	schema.FieldNama:               "",
	schema.FieldNIK:                "0",
	schema.FieldNoKK:               "0",
	schema.FieldUmur:               "25",
	schema.FieldJenisKelamin:       schema.GenderMale,
	schema.FieldAlamat:             "",
	schema.FieldRT:                 "",
	schema.FieldRW:                 "",
	schema.FieldPenghasilanSebelum: "0",
	schema.FieldPenghasilanSetelah: "0",
	schema.FieldAlasanBantuan:      schema.ReasonJobLoss,
	schema.FieldPernyataan:         "false",
}

// Attachment 上传的附件，提交前只保存在内存中
type Attachment struct {
	schema.File
	Data []byte `json:"-"`
}

// 文档注释：单个申请人填写中的申请表
// 背景：HTTP 会话按 id 持有 Form，前端每次改动都落到这里，再由提交流水线整体读取。
// 约束：所有方法可并发调用；提交期间表单处于禁用状态，任何修改都返回 false。
type Form struct {
	ID      string
	Created time.Time

	ctx    context.Context
	cancel context.CancelFunc

	disabled atomic.Bool
	touched  atomic.Int64

	chain    *location.Chain
	mounted  *location.Fetch
	reason   *reasonControl
	controls map[string]Control

	mu          sync.Mutex
	attachments map[string]*Attachment
}

// New 创建表单并发起省级查询
// 约束：ctx 约束表单发出的所有地区查询，Discard 时取消
func New(ctx context.Context, id string, lookup wilayah.Lookup) *Form {
	ctx, cancel := context.WithCancel(ctx)
	f := &Form{
		ID:          id,
		Created:     time.Now(),
		ctx:         ctx,
		cancel:      cancel,
		controls:    make(map[string]Control, len(Descriptors)),
		attachments: make(map[string]*Attachment, 2),
	}
	f.touch(f.Created)

	disabled := f.disabled.Load
	f.chain = location.NewChain(ctx, lookup, disabled, func(r location.FetchResult) {
		logger.L().Warn("region_fetch_error", "form", id, "tier", r.Tier.String(), "parent", r.ParentID, "err", r.Err)
	})
	f.reason = newReason(Defaults[schema.FieldAlasanBantuan], disabled)

	for _, d := range Descriptors {
		switch d.Kind {
		case KindLocation:
			f.controls[d.Name] = tierControl{chain: f.chain, tier: d.Tier}
		case KindFile:
		default:
			if d.Name == schema.FieldAlasanBantuan {
				f.controls[d.Name] = f.reason
				continue
			}
			f.controls[d.Name] = newScalar(d, Defaults[d.Name], disabled)
		}
	}
	f.mounted = f.chain.Mount()
	return f
}

func (f *Form) Chain() *location.Chain { return f.chain }

// Mounted 返回 New 发出的省级查询
func (f *Form) Mounted() *location.Fetch { return f.mounted }

// Control 返回字段对应的控件；附件字段没有控件
func (f *Form) Control(name string) (Control, error) {
	c, ok := f.controls[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return c, nil
}

// SetField 提交非附件字段的取值
func (f *Form) SetField(name, v string) error {
	c, err := f.Control(name)
	if err != nil {
		return err
	}
	f.touch(time.Now())
	ok, err := c.SetValue(v)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDisabled
	}
	return nil
}

// SetLocation 提交 t 级地区取值，返回随之发出的子级查询（可能为 nil）
func (f *Form) SetLocation(t wilayah.Tier, v string) (*location.Fetch, error) {
	f.touch(time.Now())
	fetch, ok, err := f.chain.SetValue(t, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDisabled
	}
	return fetch, nil
}

func (f *Form) ToggleLocation(t wilayah.Tier) error {
	f.touch(time.Now())
	ok, err := f.chain.ToggleMode(t)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDisabled
	}
	return nil
}

// AddAttachment 保存 fotoKTP 或 fotoKK 附件并替换旧文件
// 约束：未给出类型时按内容嗅探；大小与类型由 Validate 校验，此处不拦截
func (f *Form) AddAttachment(field, filename, contentType string, data []byte) error {
	if d, ok := DescriptorFor(field); !ok || d.Kind != KindFile {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	f.touch(time.Now())
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disabled.Load() {
		return ErrDisabled
	}
	f.attachments[field] = &Attachment{
		File: schema.File{Name: filename, ContentType: contentType, Size: int64(len(data))},
		Data: data,
	}
	return nil
}

// RemoveAttachment 移除附件；附件不存在时不报错
func (f *Form) RemoveAttachment(field string) error {
	if d, ok := DescriptorFor(field); !ok || d.Kind != KindFile {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	f.touch(time.Now())
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disabled.Load() {
		return ErrDisabled
	}
	delete(f.attachments, field)
	return nil
}

func (f *Form) Attachment(field string) (*Attachment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attachments[field]
	return a, ok
}

// Values 汇总为提交前校验用的扁平记录
func (f *Form) Values() schema.Values {
	get := func(name string) string { return f.controls[name].Value() }
	v := schema.Values{
		Nama:               get(schema.FieldNama),
		NIK:                get(schema.FieldNIK),
		NoKK:               get(schema.FieldNoKK),
		Umur:               get(schema.FieldUmur),
		JenisKelamin:       get(schema.FieldJenisKelamin),
		Alamat:             get(schema.FieldAlamat),
		RT:                 get(schema.FieldRT),
		RW:                 get(schema.FieldRW),
		PenghasilanSebelum: get(schema.FieldPenghasilanSebelum),
		PenghasilanSetelah: get(schema.FieldPenghasilanSetelah),
		AlasanBantuan:      get(schema.FieldAlasanBantuan),
		ReasonOther:        f.reason.Other(),
		Pernyataan:         get(schema.FieldPernyataan) == "true",
	}
	snaps := f.chain.Snapshots()
	v.Provinsi = snaps[wilayah.Province].Value
	v.KabKota = snaps[wilayah.City].Value
	v.Kecamatan = snaps[wilayah.District].Value
	v.Kelurahan = snaps[wilayah.Village].Value

	f.mu.Lock()
	if a, ok := f.attachments[schema.FieldFotoKTP]; ok {
		file := a.File
		v.FotoKTP = &file
	}
	if a, ok := f.attachments[schema.FieldFotoKK]; ok {
		file := a.File
		v.FotoKK = &file
	}
	f.mu.Unlock()
	return v
}

func (f *Form) Validate() schema.Errors { return schema.Validate(f.Values()) }

// Lock 置表单级禁用；已禁用（提交进行中）时返回 false
func (f *Form) Lock() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disabled.CompareAndSwap(false, true)
}

func (f *Form) Unlock() { f.disabled.Store(false) }

func (f *Form) Disabled() bool { return f.disabled.Load() }

// Discard 取消未完成的地区查询，之后不得再使用该表单
func (f *Form) Discard() { f.cancel() }

// Context 表单丢弃时取消
func (f *Form) Context() context.Context { return f.ctx }

// LastActive 最近一次修改尝试的时间
func (f *Form) LastActive() time.Time { return time.Unix(0, f.touched.Load()) }

func (f *Form) touch(t time.Time) { f.touched.Store(t.UnixNano()) }

// Snapshot 整张表单的只读视图
type Snapshot struct {
	ID          string                 `json:"id"`
	Disabled    bool                   `json:"disabled"`
	Fields      map[string]string      `json:"fields"`
	ReasonOther bool                   `json:"reasonOther"`
	Location    []location.Snapshot    `json:"location"`
	Attachments map[string]schema.File `json:"attachments"`
	Descriptors []Descriptor           `json:"descriptors"`
}

func (f *Form) Snapshot() Snapshot {
	s := Snapshot{
		ID:          f.ID,
		Disabled:    f.disabled.Load(),
		Fields:      make(map[string]string, len(f.controls)),
		ReasonOther: f.reason.Other(),
		Location:    f.chain.Snapshots(),
		Attachments: make(map[string]schema.File, 2),
		Descriptors: Descriptors,
	}
	for name, c := range f.controls {
		if _, isTier := c.(tierControl); isTier {
			continue
		}
		s.Fields[name] = c.Value()
	}
	f.mu.Lock()
	for name, a := range f.attachments {
		s.Attachments[name] = a.File
	}
	f.mu.Unlock()
	return s
}
