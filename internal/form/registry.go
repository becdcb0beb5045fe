package form

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"bansos-api/internal/logger"
	"bansos-api/internal/metrics"
	"bansos-api/internal/wilayah"
)

// Registry 内存中的表单会话表，以 uuid 为键
// 背景：表单状态随会话存在，不落库；空闲超过 ttl 的会话由 Sweep 回收
// 约束：正在提交（已加锁）的表单不会被回收
type Registry struct {
	mu     sync.RWMutex
	forms  map[string]*Form
	ctx    context.Context
	lookup wilayah.Lookup
	ttl    time.Duration
}

// NewRegistry：ctx 为所有表单查询上下文的父级，服务退出时取消
func NewRegistry(ctx context.Context, lookup wilayah.Lookup, ttl time.Duration) *Registry {
	return &Registry{forms: make(map[string]*Form), ctx: ctx, lookup: lookup, ttl: ttl}
}

// NewRegistryFromEnv：读取 FORM_IDLE_TTL_S（秒，默认 1800）
func NewRegistryFromEnv(ctx context.Context, lookup wilayah.Lookup) *Registry {
	ttl := 1800 * time.Second
	if v := os.Getenv("FORM_IDLE_TTL_S"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	return NewRegistry(ctx, lookup, ttl)
}

// Create：新建会话并发起省级选项查询
func (r *Registry) Create() *Form {
	f := New(r.ctx, uuid.NewString(), r.lookup)
	r.mu.Lock()
	r.forms[f.ID] = f
	r.mu.Unlock()
	metrics.FormsCreatedTotal.Inc()
	metrics.FormsActive.Inc()
	logger.L().Info("form_created", "form", f.ID)
	return f
}

func (r *Registry) Get(id string) (*Form, error) {
	r.mu.RLock()
	f, ok := r.forms[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

// Discard：移除会话并取消其未完成的查询
func (r *Registry) Discard(id string) error {
	r.mu.Lock()
	f, ok := r.forms[id]
	delete(r.forms, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	f.Discard()
	metrics.FormsActive.Dec()
	logger.L().Info("form_discarded", "form", id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}

// Sweep：回收在 now 之前空闲超过 ttl 的会话，返回回收数量
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var expired []*Form
	for id, f := range r.forms {
		if f.Disabled() || now.Sub(f.LastActive()) < r.ttl {
			continue
		}
		expired = append(expired, f)
		delete(r.forms, id)
	}
	r.mu.Unlock()
	for _, f := range expired {
		f.Discard()
		metrics.FormsActive.Dec()
	}
	if len(expired) > 0 {
		logger.L().Info("form_sweep", "expired", len(expired))
	}
	return len(expired)
}

// Run：后台周期回收，直到 ctx 取消；间隔取 ttl 的一半，至少一秒
func (r *Registry) Run(ctx context.Context) {
	every := r.ttl / 2
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}
