// 包 api：表单会话、地区查询与提交的 JSON 接口；主入口将路由挂载到 API_BASE 前缀
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bansos-api/internal/form"
	"bansos-api/internal/geohint"
	"bansos-api/internal/logger"
	"bansos-api/internal/metrics"
	"bansos-api/internal/schema"
	"bansos-api/internal/store"
	"bansos-api/internal/submission"
	"bansos-api/internal/wilayah"
)

// StatsReader 统计来源；未配置数据库时为 nil
type StatsReader interface {
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// Deps 路由依赖；Hints、Stats 可为空，Admin 为空时统计接口不设防护
type Deps struct {
	Forms    *form.Registry
	Regions  wilayah.Lookup
	Pipeline *submission.Pipeline
	Hints    *geohint.Resolver
	Stats    StatsReader
	Admin    func(http.Handler) http.Handler
}

// Handler 将各接口绑定到依赖
type Handler struct {
	d Deps
}

func New(d Deps) *Handler { return &Handler{d: d} }

// BuildRoutes 构建并返回 API 路由：独立路由树便于在主入口挂载到 /api 前缀
func BuildRoutes(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(logger.AccessMiddleware(logger.L()))
	New(d).Register(r)
	return r
}

// Register 挂载全部接口
func (h *Handler) Register(r chi.Router) {
	r.Route("/forms", func(r chi.Router) {
		r.Post("/", h.createForm)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getForm)
			r.Delete("/", h.deleteForm)
			r.Put("/fields/{name}", h.setField)
			r.Put("/location/{tier}", h.setLocation)
			r.Post("/location/{tier}/toggle", h.toggleLocation)
			r.Put("/attachments/{name}", h.putAttachment)
			r.Delete("/attachments/{name}", h.deleteAttachment)
			r.Get("/validate", h.validate)
			r.Get("/preview", h.preview)
			r.Post("/submit", h.submit)
			r.Get("/province-hint", h.provinceHint)
		})
	})
	r.Get("/regions/{tier}", h.regions)

	stats := http.Handler(http.HandlerFunc(h.stats))
	if h.d.Admin != nil {
		stats = h.d.Admin(stats)
	}
	r.Method(http.MethodGet, "/stats", stats)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
}

type errorBody struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 将领域错误映射为状态码；提交失败的消息原样返回给申请人
func writeError(w http.ResponseWriter, err error) {
	var verrs schema.Errors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Errors: verrs})
	case errors.Is(err, form.ErrNotFound), errors.Is(err, form.ErrUnknownField):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, form.ErrDisabled):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, form.ErrInvalidValue), errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, submission.ErrSubmission), errors.Is(err, wilayah.ErrLookup):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		logger.L().Error("http_internal_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

var errBadRequest = errors.New("bad request")
