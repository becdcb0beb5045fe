// 包 utils：数据库、Redis 与 TLS 证书的启动期工具，统一环境变量读取
package utils

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// BuildPostgresDSNFromEnv：PG_DSN 优先；否则由 PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE 拼装
// 约束：用户名与密码按 URL 规则转义，密码中可含 @ / : 等字符
func BuildPostgresDSNFromEnv() string {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		return dsn
	}
	user := url.User(envOr("PG_USER", "postgres"))
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		user = url.UserPassword(user.Username(), pass)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(envOr("PG_HOST", "localhost"), envOr("PG_PORT", "5432")),
		Path:     "/" + envOr("PG_DB", "bansos"),
		RawQuery: url.Values{"sslmode": {envOr("PG_SSLMODE", "disable")}}.Encode(),
	}
	return u.String()
}

// PostgresEnabled 报告是否启用数据库；PG_ENABLED 未设置时，只要配置了 PG_DSN 或 PG_HOST 即启用
func PostgresEnabled() bool {
	if v := os.Getenv("PG_ENABLED"); v != "" {
		return v == "true"
	}
	return os.Getenv("PG_DSN") != "" || os.Getenv("PG_HOST") != ""
}

// OpenPostgresFromEnv：打开连接池并在 PG_PING_TIMEOUT_MS（默认 3000）内完成探活
// 约束：探活失败时关闭连接池并返回错误，调用方决定是否降级
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 20))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 10))
	db.SetConnMaxLifetime(time.Duration(envInt("PG_CONN_MAX_LIFETIME_S", 300)) * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(envInt("PG_PING_TIMEOUT_MS", 3000))*time.Millisecond)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt：解析失败或为负时回退默认值
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
