package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "PUBLIC_BASE_URL", "RECORD_STORE", "STORAGE_DRIVER", "MAX_UPLOAD_BYTES",
		"ID_LENGTH", "UPLOAD_THUMBNAILS", "UPLOAD_CLEANUP_ORPHANS", "OAUTH_SCOPES", "SESSION_TTL_HOURS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, RecordStorePostgres, cfg.RecordStore)
	assert.Equal(t, StorageMinio, cfg.Storage.Driver)
	assert.Equal(t, int64(10485760), cfg.Upload.MaxBytes)
	assert.Equal(t, 10, cfg.Upload.IDLength)
	assert.True(t, cfg.Upload.Thumbnails)
	assert.False(t, cfg.Upload.CleanupOrphans)
	assert.Equal(t, "http://localhost:8080/auth/callback", cfg.OAuth.RedirectURL)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.OAuth.Scopes)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://snap.example.com/")
	t.Setenv("RECORD_STORE", "sqlite")
	t.Setenv("STORAGE_DRIVER", "local")
	t.Setenv("ID_LENGTH", "12")
	t.Setenv("UPLOAD_CLEANUP_ORPHANS", "true")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")
	t.Setenv("DOCUMENT_DIR", "/var/lib/screensnap")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://snap.example.com", cfg.PublicBaseURL)
	assert.Equal(t, RecordStoreSQLite, cfg.RecordStore)
	assert.Equal(t, StorageLocal, cfg.Storage.Driver)
	assert.Equal(t, 12, cfg.Upload.IDLength)
	assert.True(t, cfg.Upload.CleanupOrphans)
	assert.Equal(t, int64(10485760), cfg.Upload.MaxBytes, "invalid numbers fall back to the default")
	assert.Equal(t, "/var/lib/screensnap", cfg.DocumentDir)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	cfg := &Config{
		RecordStore: "mongo",
		Storage:     StorageConfig{Driver: "ftp"},
		Upload:      UploadConfig{IDLength: 8, MaxBytes: 0},
		AppEnv:      "production",
		JWTSecret:   "change_me_in_production",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECORD_STORE")
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
	assert.Contains(t, err.Error(), "ID_LENGTH")
	assert.Contains(t, err.Error(), "MAX_UPLOAD_BYTES")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestOAuthEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.OAuthEnabled())

	cfg.OAuth.ClientID = "id"
	cfg.OAuth.ClientSecret = "secret"
	assert.True(t, cfg.OAuthEnabled())
}
