package middleware

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"bansos-api/internal/logger"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：提交高峰时对入口进行限速，避免地区 API 与数据库被过载；按环境变量开关与速率配置。
// 约束：简化实现，不做队列排队，仅丢弃并返回 429。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(qps int) *TokenBucket {
	tb := &TokenBucket{capacity: qps, tokens: qps, now: time.Now}
	tb.lastSec = tb.now().Unix()
	return tb
}

func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Limit 包装 next，令牌耗尽时返回 429 与 Retry-After
func (tb *TokenBucket) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.allow() {
			logger.L().Debug("rate_limited", "path", r.URL.Path, "ip", ClientIP(r))
			w.Header().Set("content-type", "application/json; charset=utf-8")
			w.Header().Set("retry-after", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Terlalu banyak permintaan, silakan coba lagi"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitFromEnv：RATE_LIMIT_ENABLED=true 时按 RATE_LIMIT_QPS（默认 200）限流，否则原样返回
func RateLimitFromEnv() func(http.Handler) http.Handler {
	if os.Getenv("RATE_LIMIT_ENABLED") != "true" {
		return func(next http.Handler) http.Handler { return next }
	}
	qps := 200
	if s := os.Getenv("RATE_LIMIT_QPS"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			qps = n
		}
	}
	return NewTokenBucket(qps).Limit
}
