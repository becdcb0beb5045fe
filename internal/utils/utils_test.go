package utils

import (
	"crypto/tls"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	t.Setenv("PG_DSN", "")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "app")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_PORT", "")
	t.Setenv("PG_DB", "")
	t.Setenv("PG_SSLMODE", "")
	assert.Equal(t, "postgres://app:secret@db:5432/bansos?sslmode=disable", BuildPostgresDSNFromEnv())

	t.Setenv("PG_DSN", "postgres://x@y/z")
	assert.Equal(t, "postgres://x@y/z", BuildPostgresDSNFromEnv())
}

func TestBuildPostgresDSNFromEnv_EscapesCredentials(t *testing.T) {
	t.Setenv("PG_DSN", "")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "6432")
	t.Setenv("PG_USER", "app user")
	t.Setenv("PG_PASSWORD", "p@ss/w:rd?#")
	t.Setenv("PG_DB", "bansos")
	t.Setenv("PG_SSLMODE", "require")

	u, err := url.Parse(BuildPostgresDSNFromEnv())
	require.NoError(t, err)
	assert.Equal(t, "app user", u.User.Username())
	pass, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss/w:rd?#", pass)
	assert.Equal(t, "db:6432", u.Host)
	assert.Equal(t, "/bansos", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))

	t.Setenv("PG_PASSWORD", "")
	u, err = url.Parse(BuildPostgresDSNFromEnv())
	require.NoError(t, err)
	_, ok = u.User.Password()
	assert.False(t, ok)
}

func TestPostgresEnabled(t *testing.T) {
	t.Setenv("PG_ENABLED", "")
	t.Setenv("PG_DSN", "")
	t.Setenv("PG_HOST", "")
	assert.False(t, PostgresEnabled())
	t.Setenv("PG_HOST", "db")
	assert.True(t, PostgresEnabled())
	t.Setenv("PG_ENABLED", "false")
	assert.False(t, PostgresEnabled())
}

func TestOpenRedisFromEnvDisabled(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "")
	assert.Nil(t, OpenRedisFromEnv())
}

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "certs", "server.crt")
	key := filepath.Join(dir, "certs", "server.key")
	require.NoError(t, EnsureSelfSignedCert(cert, key, "bansos.local"))
	_, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)

	// 已存在时不重新生成
	require.NoError(t, EnsureSelfSignedCert(cert, key, "other"))
	pair, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Certificate)
}
