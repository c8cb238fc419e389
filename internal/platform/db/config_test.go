package db

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_AppliesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
version: "1"
mode: dev
database:
  host: localhost
  user: library
  password: secret
  dbname: library
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, 5, cfg.Borrowing.MaxBooksPerRequest)
	assert.Equal(t, 3, cfg.Borrowing.MonthlyRequestLimit)
	assert.Equal(t, 3, cfg.Borrowing.TxRetries)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParseConfig_TLSAddr(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
mode: release
server:
  cert: server.crt
  key: server.key
auth:
  jwt_secret: s3cr3t
  token_ttl: 2h
`))
	require.NoError(t, err)
	assert.True(t, cfg.Server.TLS())
	assert.Equal(t, ":8443", cfg.Server.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
}

func TestParseConfig_Rejects(t *testing.T) {
	_, err := ParseConfig([]byte("mode: staging\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("mode: release\n"))
	assert.Error(t, err, "release without jwt secret")
}

func TestDSN(t *testing.T) {
	dsn := DSN(DatabaseConfig{Host: "db", Port: 3306, Username: "u", Password: "p", DBName: "library"})
	assert.True(t, strings.HasPrefix(dsn, "u:p@tcp(db:3306)/library?"))
	assert.Contains(t, dsn, "parseTime=true")
}
