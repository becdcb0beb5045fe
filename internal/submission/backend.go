package submission

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"bansos-api/internal/store"
)

// ErrSubmission 所有后端失败均可用 errors.Is 匹配
var ErrSubmission = errors.New("submission failed")

// Error 携带原样展示给申请人的消息
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrSubmission }

type Backend interface {
	Submit(ctx context.Context, p *Payload) error
}

// OverloadMessage 模拟后端失败时的消息
const OverloadMessage = "Interval Server Error: Server sedang mengalami beban tinggi"

// 文档注释：模拟受理服务
// 背景：真实受理接口尚未开放，先以延迟加随机失败代替。
// 约束：等待 Delay 后以 FailureRate 的概率失败；ctx 取消时提前返回。
type Simulated struct {
	Delay       time.Duration
	FailureRate float64

	mu   sync.Mutex
	rand func() float64
}

func NewSimulated(delay time.Duration, failureRate float64, src rand.Source) *Simulated {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	r := rand.New(src)
	return &Simulated{Delay: delay, FailureRate: failureRate, rand: r.Float64}
}

// NewSimulatedFromEnv 读取 SUBMIT_DELAY_MS（默认 1500）与 SUBMIT_FAILURE_RATE（默认 0.2）
func NewSimulatedFromEnv() *Simulated {
	delay := 1500 * time.Millisecond
	if v := os.Getenv("SUBMIT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			delay = time.Duration(n) * time.Millisecond
		}
	}
	rate := 0.2
	if v := os.Getenv("SUBMIT_FAILURE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			rate = f
		}
	}
	return NewSimulated(delay, rate, nil)
}

func (s *Simulated) Submit(ctx context.Context, _ *Payload) error {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return &Error{Message: ctx.Err().Error(), Err: ctx.Err()}
		case <-t.C:
		}
	}
	s.mu.Lock()
	roll := s.rand()
	s.mu.Unlock()
	if roll < s.FailureRate {
		return &Error{Message: OverloadMessage}
	}
	return nil
}

// ApplicationWriter postgres 后端所需的存储能力
type ApplicationWriter interface {
	InsertApplication(ctx context.Context, a *store.Application) error
}

// StoreBackend 将提交写入 postgres
type StoreBackend struct {
	w ApplicationWriter
}

func NewStoreBackend(w ApplicationWriter) *StoreBackend { return &StoreBackend{w: w} }

func (b *StoreBackend) Submit(ctx context.Context, p *Payload) error {
	if err := b.w.InsertApplication(ctx, toApplication(p)); err != nil {
		return &Error{Message: "Gagal menyimpan pengajuan, silakan coba lagi", Err: err}
	}
	return nil
}

func toApplication(p *Payload) *store.Application {
	a := &store.Application{
		ID:                 p.ID,
		CreatedAt:          p.SubmittedAt,
		Nama:               p.Nama,
		NIK:                p.NIK,
		NoKK:               p.NoKK,
		Umur:               p.Umur,
		JenisKelamin:       p.JenisKelamin,
		ProvinsiID:         p.Provinsi.ID,
		Provinsi:           p.Provinsi.Name,
		KabKotaID:          p.KabKota.ID,
		KabKota:            p.KabKota.Name,
		KecamatanID:        p.Kecamatan.ID,
		Kecamatan:          p.Kecamatan.Name,
		KelurahanID:        p.Kelurahan.ID,
		Kelurahan:          p.Kelurahan.Name,
		Alamat:             p.Alamat,
		RT:                 p.RT,
		RW:                 p.RW,
		PenghasilanSebelum: p.PenghasilanSebelum,
		PenghasilanSetelah: p.PenghasilanSetelah,
		AlasanBantuan:      p.AlasanBantuan,
		Pernyataan:         p.Pernyataan,
	}
	for _, at := range p.Attachments {
		a.Attachments = append(a.Attachments, store.Attachment{
			Field:       at.Field,
			Name:        at.Name,
			ContentType: at.ContentType,
			Data:        at.Data,
		})
	}
	return a
}
