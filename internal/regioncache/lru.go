package regioncache

import (
	"container/list"
	"sync"
	"time"

	"bansos-api/internal/wilayah"
)

// 文档注释：进程内 LRU（层级+父级 id 为键）
// 背景：同一省/市的子级列表在表单会话之间高度重复，进程内缓存避免每次级联都访问 Redis 或远端。
// 约束：值为只读切片，Get 返回副本；容量<=0 时视为 1。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type entry struct {
	k   string
	v   []wilayah.Region
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

func (c *LRU) Get(k string) ([]wilayah.Region, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(entry)
		if c.now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return append([]wilayah.Region(nil), it.v...), true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return nil, false
}

func (c *LRU) Set(k string, v []wilayah.Region) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := entry{k: k, v: append([]wilayah.Region(nil), v...), exp: c.now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back == nil {
			break
		}
		delete(c.dict, back.Value.(entry).k)
		c.lst.Remove(back)
	}
}

// Len 当前条目数（含未清理的过期项）
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
