package form

import (
	"fmt"
	"sync"

	"bansos-api/internal/schema"
)

// reasonControl 固定理由下拉框；选中 "Lainnya" 后转为自由文本，文本清空后恢复下拉
type reasonControl struct {
	mu       sync.Mutex
	other    bool
	value    string
	disabled func() bool
	subs     subscribers
}

func newReason(initial string, disabled func() bool) *reasonControl {
	return &reasonControl{value: initial, disabled: disabled}
}

func (c *reasonControl) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Other 是否处于自由文本模式
func (c *reasonControl) Other() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.other
}

func (c *reasonControl) SetValue(v string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.other && v != "" && !contains(schema.Reasons, v) {
		return false, fmt.Errorf("%s: %w: %q is not a choice", schema.FieldAlasanBantuan, ErrInvalidValue, v)
	}
	if c.disabled() {
		return false, nil
	}
	switch {
	case !c.other && v == schema.ReasonOther:
		c.other = true
		v = ""
	case c.other && v == "":
		c.other = false
	}
	c.value = v
	c.subs.notify(v)
	return true, nil
}

func (c *reasonControl) Subscribe(fn func(string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.subs.add(fn)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs.fns, id)
	}
}
