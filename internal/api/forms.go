package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bansos-api/internal/form"
	"bansos-api/internal/location"
	"bansos-api/internal/logger"
	"bansos-api/internal/middleware"
	"bansos-api/internal/wilayah"
)

// maxUploadBytes 为单次上传请求体上限；超过 2MB 的文件仍会被接收，由校验给出提示
const maxUploadBytes = 8 << 20

func (h *Handler) form(w http.ResponseWriter, r *http.Request) (*form.Form, bool) {
	f, err := h.d.Forms.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return f, true
}

// wantWait 报告请求是否要求等待异步查询落地（?wait=true）
func wantWait(r *http.Request) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return b
}

func (h *Handler) createForm(w http.ResponseWriter, r *http.Request) {
	f := h.d.Forms.Create()
	if wantWait(r) {
		select {
		case <-f.Mounted().Done():
		case <-r.Context().Done():
		}
	}
	writeJSON(w, http.StatusCreated, f.Snapshot())
}

func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func (h *Handler) deleteForm(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Forms.Discard(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type valueRequest struct {
	Value json.RawMessage `json:"value"`
}

// decodeValue 接受字符串、数字、布尔与 null，统一转为文本；数字保留原始写法
func decodeValue(r *http.Request) (string, error) {
	var req valueRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	raw := bytes.TrimSpace(req.Value)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("%w: value must be a string, number or boolean", errBadRequest)
}

func (h *Handler) setField(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	v, err := decodeValue(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	if d, found := form.DescriptorFor(name); found && d.Kind == form.KindLocation {
		h.applyLocation(w, r, f, d.Tier, v)
		return
	}
	if err := f.SetField(name, v); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func parseTier(w http.ResponseWriter, r *http.Request) (wilayah.Tier, bool) {
	t, ok := wilayah.ParseTier(chi.URLParam(r, "tier"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown tier " + strconv.Quote(chi.URLParam(r, "tier"))})
	}
	return t, ok
}

func (h *Handler) setLocation(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	t, ok := parseTier(w, r)
	if !ok {
		return
	}
	v, err := decodeValue(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.applyLocation(w, r, f, t, v)
}

type fetchInfo struct {
	Tier     string `json:"tier"`
	ParentID string `json:"parentId"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type locationResponse struct {
	Form  form.Snapshot `json:"form"`
	Fetch *fetchInfo    `json:"fetch"`
}

func (h *Handler) applyLocation(w http.ResponseWriter, r *http.Request, f *form.Form, t wilayah.Tier, v string) {
	fetch, err := f.SetLocation(t, v)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := locationResponse{}
	if fetch != nil {
		resp.Fetch = &fetchInfo{Tier: fetch.Tier.String(), ParentID: fetch.ParentID}
		if wantWait(r) {
			waitFetch(r, fetch, resp.Fetch)
		}
	}
	resp.Form = f.Snapshot()
	writeJSON(w, http.StatusOK, resp)
}

func waitFetch(r *http.Request, fetch *location.Fetch, info *fetchInfo) {
	select {
	case <-fetch.Done():
		info.Done = true
		if res := fetch.Wait(); res.Err != nil {
			info.Error = res.Err.Error()
		}
	case <-r.Context().Done():
	}
}

func (h *Handler) toggleLocation(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	t, ok := parseTier(w, r)
	if !ok {
		return
	}
	if err := f.ToggleLocation(t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func (h *Handler) putAttachment(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: multipart field \"file\": %v", errBadRequest, err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	name := chi.URLParam(r, "name")
	if err := f.AddAttachment(name, hdr.Filename, hdr.Header.Get("Content-Type"), data); err != nil {
		writeError(w, err)
		return
	}
	logger.L().Debug("attachment_stored", "form", f.ID, "field", name, "size", len(data))
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func (h *Handler) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	if err := f.RemoveAttachment(chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

type validateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	errs := f.Validate()
	resp := validateResponse{Valid: errs == nil, Errors: map[string]string(errs)}
	if resp.Errors == nil {
		resp.Errors = map[string]string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f.Preview())
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	res, err := h.d.Pipeline.Submit(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) provinceHint(w http.ResponseWriter, r *http.Request) {
	f, ok := h.form(w, r)
	if !ok {
		return
	}
	res, found, err := h.d.Hints.Resolve(r.Context(), middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	logger.L().Debug("province_hint_served", "form", f.ID, "province", res.Region.ID)
	writeJSON(w, http.StatusOK, res)
}
