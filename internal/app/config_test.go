package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoad() (*Config, error) {
	return loadConfig(aconfig.Config{SkipFlags: true, SkipFiles: true})
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("LARDER_DATABASE_URL", "postgres://localhost/larder")

	cfg, err := testLoad()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.Fulfillment.TxTimeout)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("LARDER_DATABASE_URL", "postgres://localhost/larder")
	t.Setenv("LARDER_FULFILLMENT_TX_TIMEOUT", "2s")
	t.Setenv("LARDER_API_KEY_PEPPER", "salt")

	cfg, err := testLoad()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Fulfillment.TxTimeout)
	assert.Equal(t, "salt", cfg.APIKeyPepper)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg, err := testLoad()
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := testLoad()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}
