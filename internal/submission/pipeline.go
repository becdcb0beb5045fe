// Package submission 在表单锁定期间把校验通过的表单组装为 Payload 并交给后端。
package submission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"bansos-api/internal/form"
	"bansos-api/internal/logger"
	"bansos-api/internal/metrics"
)

// DuplicateMessage 同一 NIK 已有申请时的提示
const DuplicateMessage = "NIK sudah pernah mengajukan bantuan"

// FailureRecorder 记录失败次数，由 store 实现
type FailureRecorder interface {
	IncrFailure(ctx context.Context)
}

type Result struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
	Payload     Payload   `json:"payload"`
}

type Pipeline struct {
	backend  Backend
	dedup    *DedupGuard
	failures FailureRecorder

	now   func() time.Time
	newID func() string
}

// NewPipeline 组装后端、去重与失败记录；后两者可为 nil
func NewPipeline(backend Backend, dedup *DedupGuard, failures FailureRecorder) *Pipeline {
	return &Pipeline{
		backend:  backend,
		dedup:    dedup,
		failures: failures,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// 文档注释：提交申请
// 背景：锁定表单后依次校验、组装并调用后端，任何结果下都会解锁。
// 约束：另一提交持锁时返回 form.ErrDisabled；校验失败返回 schema.Errors；后端拒绝返回 *Error（可匹配 ErrSubmission）。
func (p *Pipeline) Submit(ctx context.Context, f *form.Form) (*Result, error) {
	if !f.Lock() {
		return nil, form.ErrDisabled
	}
	defer f.Unlock()

	l := logger.L().With("form", f.ID)
	start := time.Now()
	defer func() {
		metrics.SubmissionDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if errs := f.Validate(); errs != nil {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		l.Debug("submit_invalid", "fields", len(errs))
		return nil, errs
	}

	payload := BuildPayload(f, p.newID(), p.now())

	seen, err := p.dedup.Seen(ctx, payload.NIK)
	if err != nil {
		l.Warn("dedup_check_error", "err", err)
	}
	if seen {
		metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
		l.Info("submit_duplicate")
		return nil, &Error{Message: DuplicateMessage}
	}

	if err := p.backend.Submit(ctx, &payload); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		if p.failures != nil {
			p.failures.IncrFailure(ctx)
		}
		l.Warn("submit_error", "err", err)
		var se *Error
		if !errors.As(err, &se) {
			se = &Error{Message: err.Error(), Err: err}
		}
		return nil, se
	}

	if err := p.dedup.Mark(ctx, payload.NIK); err != nil {
		l.Warn("dedup_mark_error", "err", err)
	}
	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()
	l.Info("submit_ok", "id", payload.ID, "attachments", len(payload.Attachments))
	return &Result{ID: payload.ID, SubmittedAt: payload.SubmittedAt, Payload: payload}, nil
}
