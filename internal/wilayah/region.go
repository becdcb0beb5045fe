// 包 wilayah：印尼行政区四级层级（省/市县/区/村）的数据模型与远端查询契约
package wilayah

import (
	"context"
	"errors"
	"fmt"
)

// Tier 行政层级，按 Province < City < District < Village 全序排列
type Tier int

const (
	Province Tier = iota
	City
	District
	Village
)

// Tiers 按层级顺序列出全部四级
var Tiers = [...]Tier{Province, City, District, Village}

var tierNames = [...]string{"province", "city", "district", "village"}

func (t Tier) String() string {
	if t < Province || t > Village {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Valid 报告 t 是否为四级之一
func (t Tier) Valid() bool { return t >= Province && t <= Village }

// Parent 返回上一级；Province 无上级
func (t Tier) Parent() (Tier, bool) {
	if t <= Province || t > Village {
		return 0, false
	}
	return t - 1, true
}

// Child 返回下一级；Village 为叶子
func (t Tier) Child() (Tier, bool) {
	if t < Province || t >= Village {
		return 0, false
	}
	return t + 1, true
}

// ParseTier 解析路径参数中的层级名，同时接受原表单字段名
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "province", "provinsi":
		return Province, true
	case "city", "kabKota", "regency":
		return City, true
	case "district", "kecamatan":
		return District, true
	case "village", "kelurahan":
		return Village, true
	}
	return 0, false
}

// Region 一个可选行政单元；id 在同级集合内通常唯一，但本系统不强制
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrLookup 所有子级查询失败（网络、状态码、解析）均可用 errors.Is 判定为该错误
var ErrLookup = errors.New("region lookup failed")

// LookupError 携带失败的层级与父级键
type LookupError struct {
	Tier     Tier
	ParentID string
	Err      error
}

func (e *LookupError) Error() string {
	if e.ParentID == "" {
		return fmt.Sprintf("lookup %s: %v", e.Tier, e.Err)
	}
	return fmt.Sprintf("lookup %s of %q: %v", e.Tier, e.ParentID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool { return target == ErrLookup }

//go:generate mockgen -source=region.go -destination=mocks/mock_lookup.go -package=mocks Lookup

// Lookup 子级查询契约；Province 忽略 parentID，返回顺序即展示顺序
type Lookup interface {
	Children(ctx context.Context, tier Tier, parentID string) ([]Region, error)
}

// LookupFunc 便于以函数适配 Lookup
type LookupFunc func(ctx context.Context, tier Tier, parentID string) ([]Region, error)

func (f LookupFunc) Children(ctx context.Context, tier Tier, parentID string) ([]Region, error) {
	return f(ctx, tier, parentID)
}
