package location

import (
	"context"
	"fmt"
	"sync"

	"bansos-api/internal/metrics"
	"bansos-api/internal/wilayah"
)

// FetchResult 一次子级选项查询的结果
type FetchResult struct {
	Tier     wilayah.Tier
	ParentID string
	Regions  []wilayah.Region
	Err      error
}

// Fetch 级联发出的一次性异步查询
// 约束：后续取值变化不会取消它，返回时结果照常写入
type Fetch struct {
	Tier     wilayah.Tier
	ParentID string

	done chan struct{}
	res  FetchResult
}

func newFetch(tier wilayah.Tier, parentID string) *Fetch {
	return &Fetch{Tier: tier, ParentID: parentID, done: make(chan struct{})}
}

// Done 结果写入级联后关闭
func (f *Fetch) Done() <-chan struct{} { return f.done }

func (f *Fetch) Wait() FetchResult {
	<-f.done
	return f.res
}

// ErrorReporter 接收子级查询失败；级联本身只把子级留空
type ErrorReporter func(FetchResult)

// 文档注释：省/市县/区/村四级联动
// 背景：父级取值变化时清空全部下级，并按新父级拉取直接子级选项。
// 约束：所有方法可并发调用；字段状态只在 c.mu 内修改。
type Chain struct {
	mu     sync.Mutex
	ctx    context.Context
	lookup wilayah.Lookup
	report ErrorReporter
	fields [len(wilayah.Tiers)]*Field

	inflight sync.WaitGroup
	issued   *Fetch
}

// NewChain 创建四级字段，并在村级以外的每一级挂上级联订阅
// 约束：ctx 约束本级联发出的所有查询，表单丢弃时应取消；disabled 同时控制四级字段
func NewChain(ctx context.Context, lookup wilayah.Lookup, disabled func() bool, report ErrorReporter) *Chain {
	c := &Chain{ctx: ctx, lookup: lookup, report: report}
	for _, t := range wilayah.Tiers {
		c.fields[t] = NewField(t, disabled)
	}
	for _, t := range wilayah.Tiers {
		if _, ok := t.Child(); !ok {
			continue
		}
		tier := t
		c.fields[t].Subscribe(func(v string) { c.cascade(tier, v) })
	}
	return c
}

// Mount 发起省级列表查询（无条件）
func (c *Chain) Mount() *Fetch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issue(wilayah.Province, "")
}

// SetValue 提交 t 级的取值
// 约束：返回本次变化发出的子级查询（未发出时为 nil）；级联被禁用时返回 false
func (c *Chain) SetValue(t wilayah.Tier, v string) (*Fetch, bool, error) {
	if !t.Valid() {
		return nil, false, fmt.Errorf("unknown tier %d", int(t))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued = nil
	ok := c.fields[t].SetValue(v)
	f := c.issued
	c.issued = nil
	return f, ok, nil
}

// ToggleMode 在列表与手动输入之间切换 t 级
func (c *Chain) ToggleMode(t wilayah.Tier) (bool, error) {
	if !t.Valid() {
		return false, fmt.Errorf("unknown tier %d", int(t))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields[t].ToggleMode(), nil
}

// Subscribe 订阅 t 级的取值提交
// 约束：fn 在持锁状态下执行，不得回调级联；未知层级返回空操作的退订函数
func (c *Chain) Subscribe(t wilayah.Tier, fn func(string)) func() {
	if !t.Valid() {
		return func() {}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	unsub := c.fields[t].Subscribe(fn)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		unsub()
	}
}

// Snapshot 复制 t 级状态；未知层级返回零值
func (c *Chain) Snapshot(t wilayah.Tier) Snapshot {
	if !t.Valid() {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields[t].Snapshot()
}

// Snapshots 在同一把锁内复制四级状态，读取方不会拿到新父级配旧子级选项
func (c *Chain) Snapshots() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, 0, len(c.fields))
	for _, f := range c.fields {
		out = append(out, f.Snapshot())
	}
	return out
}

// Resolve 返回 t 级已提交的取值；列表模式且命中选项时一并返回该选项
func (c *Chain) Resolve(t wilayah.Tier) (value string, region wilayah.Region, listed bool) {
	if !t.Valid() {
		return "", wilayah.Region{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.fields[t]
	if f.Mode() == Listed {
		if r, ok := f.Lookup(f.Value()); ok {
			return f.Value(), r, true
		}
	}
	return f.Value(), wilayah.Region{}, false
}

// Wait 等待所有已发出的查询写入完毕
func (c *Chain) Wait() { c.inflight.Wait() }

// cascade 在 Field.SetValue 内同步执行，调用方已持有 c.mu
func (c *Chain) cascade(t wilayah.Tier, v string) {
	child, ok := t.Child()
	if !ok {
		return
	}
	for d := child; ; {
		c.fields[d].reset()
		next, more := d.Child()
		if !more {
			break
		}
		d = next
	}
	parent := c.fields[t]
	if parent.Mode() != Listed {
		return
	}
	if _, ok := parent.Lookup(v); !ok {
		return
	}
	c.issued = c.issue(child, v)
}

// issue 发起 t 级查询；调用方须持有 c.mu
func (c *Chain) issue(t wilayah.Tier, parentID string) *Fetch {
	f := newFetch(t, parentID)
	c.fields[t].status = StatusLoading
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		regions, err := c.lookup.Children(c.ctx, t, parentID)
		c.apply(f, regions, err)
	}()
	return f
}

// apply 把查询结果写入目标字段
// 约束：最后返回的查询生效，即使其父级取值已不是当前值
func (c *Chain) apply(f *Fetch, regions []wilayah.Region, err error) {
	res := FetchResult{Tier: f.Tier, ParentID: f.ParentID, Regions: regions, Err: err}
	c.mu.Lock()
	target := c.fields[f.Tier]
	if err != nil {
		target.status = StatusFailed
		metrics.CascadeFetchTotal.WithLabelValues(f.Tier.String(), "error").Inc()
	} else {
		target.Initialize(regions)
		metrics.CascadeFetchTotal.WithLabelValues(f.Tier.String(), "ok").Inc()
	}
	f.res = res
	c.mu.Unlock()
	if err != nil && c.report != nil {
		c.report(res)
	}
	close(f.done)
}
