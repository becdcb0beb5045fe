package wilayah

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"bansos-api/internal/logger"
	"bansos-api/internal/metrics"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL 公开的印尼行政区静态 API
const DefaultBaseURL = "https://www.emsifa.com/api-wilayah-indonesia/api"

// 文档注释：emsifa 行政区 REST 客户端
// 背景：四级接口均为静态 JSON（provinces.json、regencies/{id}.json、districts/{id}.json、villages/{id}.json），
// 返回 [{"id":..,"name":..}]；客户端只做请求、解码与防御性校验，缓存由 regioncache 负责。
// 约束：5xx 与网络错误按 retry 次数重试；4xx 直接失败；失败统一包装为 *LookupError。
type Client struct {
	http *resty.Client
}

// NewClient 构建客户端；timeout<=0 时使用 5s
func NewClient(baseURL string, timeout time.Duration, retry int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retry < 0 {
		retry = 0
	}
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retry).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= 500)
		})
	return &Client{http: hc}
}

// NewClientFromEnv 读取 WILAYAH_BASE_URL、WILAYAH_TIMEOUT_MS、WILAYAH_RETRY
func NewClientFromEnv() *Client {
	timeout := 5 * time.Second
	if s := os.Getenv("WILAYAH_TIMEOUT_MS"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			timeout = time.Duration(n) * time.Millisecond
		}
	}
	retry := 2
	if s := os.Getenv("WILAYAH_RETRY"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n >= 0 {
			retry = n
		}
	}
	return NewClient(os.Getenv("WILAYAH_BASE_URL"), timeout, retry)
}

func resourcePath(tier Tier, parentID string) (string, error) {
	if tier == Province {
		return "/provinces.json", nil
	}
	if parentID == "" {
		return "", errors.New("missing parent id")
	}
	p := url.PathEscape(parentID)
	switch tier {
	case City:
		return "/regencies/" + p + ".json", nil
	case District:
		return "/districts/" + p + ".json", nil
	case Village:
		return "/villages/" + p + ".json", nil
	}
	return "", fmt.Errorf("unknown tier %d", int(tier))
}

// Children 查询 tier 级的子区域
func (c *Client) Children(ctx context.Context, tier Tier, parentID string) ([]Region, error) {
	if tier == Province {
		parentID = ""
	}
	path, err := resourcePath(tier, parentID)
	if err != nil {
		return nil, &LookupError{Tier: tier, ParentID: parentID, Err: err}
	}
	t0 := time.Now()
	metrics.RegionRequestsTotal.WithLabelValues(tier.String()).Inc()
	logger.L().Debug("wilayah_req", "tier", tier.String(), "parent", parentID)
	resp, err := c.http.R().SetContext(ctx).Get(path)
	metrics.RegionDurationMs.WithLabelValues(tier.String()).Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		logger.L().Error("wilayah_http_error", "tier", tier.String(), "parent", parentID, "err", err)
		metrics.RegionFailTotal.WithLabelValues(tier.String()).Inc()
		return nil, &LookupError{Tier: tier, ParentID: parentID, Err: err}
	}
	if resp.IsError() {
		metrics.RegionFailTotal.WithLabelValues(tier.String()).Inc()
		logger.L().Error("wilayah_status_error", "tier", tier.String(), "parent", parentID, "status", resp.StatusCode())
		return nil, &LookupError{Tier: tier, ParentID: parentID, Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
	}
	var raw []Region
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		metrics.RegionFailTotal.WithLabelValues(tier.String()).Inc()
		logger.L().Error("wilayah_decode_error", "tier", tier.String(), "parent", parentID, "err", err)
		return nil, &LookupError{Tier: tier, ParentID: parentID, Err: err}
	}
	out := sanitize(raw)
	if dropped := len(raw) - len(out); dropped > 0 {
		logger.L().Warn("wilayah_invalid_entries", "tier", tier.String(), "parent", parentID, "dropped", dropped)
	}
	logger.L().Debug("wilayah_resp", "tier", tier.String(), "parent", parentID, "count", len(out), "duration_ms", time.Since(t0).Milliseconds())
	return out, nil
}

// sanitize 丢弃 id 或 name 为空的条目，保留原顺序；重复 id 原样保留
func sanitize(in []Region) []Region {
	out := make([]Region, 0, len(in))
	for _, r := range in {
		if r.ID == "" || r.Name == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
