package helper

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "DB_DRIVER", "DB_DSN", "NEO4J_URI", "S3_BUCKET", "DB_MAX_OPEN_CONNS"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfigFromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.SQL.Driver)
	assert.Equal(t, "themenu.db", cfg.SQL.DSN)
	assert.Equal(t, 10, cfg.SQL.MaxOpenConns)
	assert.Equal(t, "neo4j", cfg.Neo4j.Username)
	assert.Empty(t, cfg.Neo4j.URI)
	assert.Empty(t, cfg.S3.Bucket)
}

func TestLoadConfigFromEnvPostgres(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "menu")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "menu")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg := LoadConfigFromEnv()
	require.Equal(t, "postgres", cfg.SQL.Driver)
	assert.Equal(t, "host=db.internal user=menu password=secret dbname=menu port=6543 sslmode=disable", cfg.SQL.DSN)
	assert.Equal(t, 10, cfg.SQL.MaxOpenConns)
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", "json", &buf)

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
