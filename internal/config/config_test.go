package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, BlobBackendFS, cfg.Blob.Backend)
	assert.True(t, cfg.Files.BatchDeleteAtomic)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FILEVAULT_API_PORT", "9090")
	t.Setenv("FILEVAULT_BLOB_BACKEND", "MinIO")
	t.Setenv("FILEVAULT_BATCH_DELETE_ATOMIC", "no")
	t.Setenv("FILEVAULT_AUTH_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("FILEVAULT_AUTH_BCRYPT_COST", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, BlobBackendMinIO, cfg.Blob.Backend)
	assert.False(t, cfg.Files.BatchDeleteAtomic)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost, "out-of-range cost falls back to default")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("FILEVAULT_BLOB_BACKEND", "tape")

	_, err := Load()
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{User: "u", Password: "p", Host: "db", Port: 5432, Database: "fv", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/fv?sslmode=disable", p.DSN())
}
