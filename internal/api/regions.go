package api

import (
	"net/http"

	"bansos-api/internal/logger"
)

type regionsResponse struct {
	Tier    string `json:"tier"`
	Parent  string `json:"parent"`
	Regions any    `json:"regions"`
}

// regions 直接查询地区选项，不涉及表单会话；非省级必须提供 parent
func (h *Handler) regions(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTier(w, r)
	if !ok {
		return
	}
	parent := r.URL.Query().Get("parent")
	if _, hasParent := t.Parent(); hasParent && parent == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "parent is required for " + t.String()})
		return
	}
	list, err := h.d.Regions.Children(r.Context(), t, parent)
	if err != nil {
		logger.L().Warn("regions_lookup_error", "tier", t.String(), "parent", parent, "err", err)
		writeError(w, err)
		return
	}
	resp := regionsResponse{Tier: t.String(), Parent: parent, Regions: list}
	if list == nil {
		resp.Regions = []struct{}{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Total       int64 `json:"total"`
	Failures    int64 `json:"failures"`
	Today       int64 `json:"today"`
	FormsActive int   `json:"forms_active"`
}

// stats：未接入数据库时仅返回内存中的活跃表单数
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{FormsActive: h.d.Forms.Len()}
	if h.d.Stats != nil {
		t, err := h.d.Stats.GetTotals(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Total, resp.Failures, resp.Today = t.Total, t.Failures, t.Today
	}
	writeJSON(w, http.StatusOK, resp)
}
