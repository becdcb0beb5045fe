package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"os"
	"strings"

	"bansos-api/internal/logger"
)

// 文档注释：管理接口访问控制（令牌 + IP/CIDR 白名单）
// 背景：统计接口只对运营人员开放；持有 ADMIN_TOKEN 或来源地址命中白名单即放行，其余返回 403。
// 约束：来源地址以 RemoteAddr 为准；位于反向代理之后时可通过 ADMIN_REAL_IP_HEADER 指定上游真实 IP 头。
type AdminGuard struct {
	token        string
	allowIPs     map[string]struct{}
	allowCIDRs   []*net.IPNet
	realIPHeader string
}

// AdminGuardFromEnv：
// ADMIN_TOKEN=secret                  以 "Authorization: Bearer secret" 或 X-Admin-Token 头携带
// ADMIN_ALLOW_CIDRS=10.0.0.0/8,...    允许的 CIDR 或单 IP 列表（逗号分隔，支持 v4/v6）
// ADMIN_REAL_IP_HEADER=X-Real-IP      指定上游真实 IP 头
// 未配置令牌与白名单时仅允许本机访问
func AdminGuardFromEnv() *AdminGuard {
	g := &AdminGuard{
		token:        os.Getenv("ADMIN_TOKEN"),
		allowIPs:     map[string]struct{}{},
		realIPHeader: strings.TrimSpace(os.Getenv("ADMIN_REAL_IP_HEADER")),
	}
	if s := os.Getenv("ADMIN_ALLOW_CIDRS"); s != "" {
		for _, c := range strings.Split(s, ",") {
			g.allow(strings.TrimSpace(c))
		}
	}
	if g.token == "" && len(g.allowIPs) == 0 && len(g.allowCIDRs) == 0 {
		g.allow("127.0.0.1")
		g.allow("::1")
	}
	return g
}

func (g *AdminGuard) allow(c string) {
	if c == "" {
		return
	}
	if _, n, err := net.ParseCIDR(c); err == nil {
		g.allowCIDRs = append(g.allowCIDRs, n)
		return
	}
	if ip := net.ParseIP(c); ip != nil {
		g.allowIPs[ip.String()] = struct{}{}
	}
}

func (g *AdminGuard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.tokenOK(r) || g.addrOK(r) {
			next.ServeHTTP(w, r)
			return
		}
		logger.L().Warn("admin_denied", "path", r.URL.Path, "remote", r.RemoteAddr)
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	})
}

func (g *AdminGuard) tokenOK(r *http.Request) bool {
	if g.token == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Token")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(g.token)) == 1
}

func (g *AdminGuard) addrOK(r *http.Request) bool {
	src := remoteIP(r)
	if g.realIPHeader != "" {
		if v := r.Header.Get(g.realIPHeader); v != "" {
			src = strings.TrimSpace(strings.Split(v, ",")[0])
		}
	}
	ip := net.ParseIP(src)
	if ip == nil {
		return false
	}
	if _, ok := g.allowIPs[ip.String()]; ok {
		return true
	}
	for _, n := range g.allowCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
