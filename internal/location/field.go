// Package location 省 → 市县 → 区 → 村四级联动选择：每级一个 Field，由 Chain 串联。
package location

import (
	"sort"

	"bansos-api/internal/wilayah"
)

// Mode 取值来源
type Mode int

const (
	// 列表模式：取值应为已拉取选项中的 id
	Listed Mode = iota
	// 手动模式：申请人输入的自由文本
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "listed"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// State 由模式、取值与选项推导出的状态；禁用另行标记
type State string

const (
	StateEmpty          State = "empty"
	StateListedSelected State = "listed_selected"
	StateManualEntered  State = "manual_entered"
	// 列表模式下取值非空但不在当前选项中（如客户端持有过期选项）
	StateUnmatched State = "unmatched"
)

// Status 选项集加载状态，仅供渲染使用，不影响清空与拉取
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// 文档注释：单级地区字段
// 约束：非并发安全，由所属 Chain 串行访问。
type Field struct {
	tier     wilayah.Tier
	mode     Mode
	value    string
	options  []wilayah.Region
	status   Status
	disabled func() bool

	subs    map[int]func(string)
	nextSub int
}

// NewField 返回空的列表模式字段；disabled 可为 nil
func NewField(tier wilayah.Tier, disabled func() bool) *Field {
	if disabled == nil {
		disabled = func() bool { return false }
	}
	return &Field{
		tier:     tier,
		mode:     Listed,
		status:   StatusIdle,
		disabled: disabled,
		subs:     make(map[int]func(string)),
	}
}

func (f *Field) Tier() wilayah.Tier { return f.tier }
func (f *Field) Mode() Mode         { return f.mode }
func (f *Field) Value() string      { return f.value }
func (f *Field) Status() Status     { return f.status }
func (f *Field) Disabled() bool     { return f.disabled() }

func (f *Field) Options() []wilayah.Region {
	return append([]wilayah.Region(nil), f.options...)
}

// Initialize 替换选项集，空列表同样有效
func (f *Field) Initialize(options []wilayah.Region) {
	f.options = append([]wilayah.Region(nil), options...)
	f.status = StatusReady
}

// ToggleMode 切换列表/手动模式并保留取值；禁用时不切换并返回 false
func (f *Field) ToggleMode() bool {
	if f.disabled() {
		return false
	}
	if f.mode == Listed {
		f.mode = Manual
	} else {
		f.mode = Listed
	}
	return true
}

// SetValue 记录取值并按订阅顺序同步通知订阅者
// 约束：禁用时不做任何修改并返回 false
func (f *Field) SetValue(v string) bool {
	if f.disabled() {
		return false
	}
	f.value = v
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := f.subs[id]; ok {
			fn(v)
		}
	}
	return true
}

// Subscribe 订阅取值提交，返回退订函数
func (f *Field) Subscribe(fn func(string)) func() {
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() { delete(f.subs, id) }
}

// Lookup 按 id 查找选项；id 重复时取展示顺序中的第一个
func (f *Field) Lookup(id string) (wilayah.Region, bool) {
	if id == "" {
		return wilayah.Region{}, false
	}
	for _, r := range f.options {
		if r.ID == id {
			return r, true
		}
	}
	return wilayah.Region{}, false
}

// Resolved 列表模式且取值命中选项，即拉取下一级的前提
func (f *Field) Resolved() bool {
	if f.mode != Listed {
		return false
	}
	_, ok := f.Lookup(f.value)
	return ok
}

func (f *Field) State() State {
	switch {
	case f.mode == Manual:
		if f.value == "" {
			return StateEmpty
		}
		return StateManualEntered
	case f.value == "":
		return StateEmpty
	case f.Resolved():
		return StateListedSelected
	default:
		return StateUnmatched
	}
}

// reset 父级变化时的强制清空；不通知订阅者，触发它的变化本身已在级联中
func (f *Field) reset() {
	f.value = ""
	f.options = nil
	f.status = StatusIdle
}

// Snapshot 供渲染使用的只读副本
type Snapshot struct {
	Tier     string           `json:"tier"`
	Mode     Mode             `json:"mode"`
	Value    string           `json:"value"`
	Display  string           `json:"display"`
	Options  []wilayah.Region `json:"options"`
	Status   Status           `json:"status"`
	State    State            `json:"state"`
	Disabled bool             `json:"disabled"`
}

func (f *Field) Snapshot() Snapshot {
	s := Snapshot{
		Tier:     f.tier.String(),
		Mode:     f.mode,
		Value:    f.value,
		Display:  f.value,
		Options:  f.Options(),
		Status:   f.status,
		State:    f.State(),
		Disabled: f.disabled(),
	}
	if s.Options == nil {
		s.Options = []wilayah.Region{}
	}
	if f.mode == Listed {
		if r, ok := f.Lookup(f.value); ok {
			s.Display = r.Name
		}
	}
	return s
}
