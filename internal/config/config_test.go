package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvDefaultsLayering(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "farmcart.yaml")
	yml := "port: 7000\nstore: sqlite\ndeliveryETA: 36h\ncorsOrigins:\n  - https://farmcart.example\nrateLimit: 5\n"
	require.NoError(t, os.WriteFile(p, []byte(yml), 0o644))

	t.Setenv("FARMCART_CONFIG", p)
	t.Setenv("FARMCART_PORT", "7100")
	t.Setenv("FARMCART_LOG_JSON", "false")
	t.Setenv("FARMCART_CORS_ORIGINS", "https://a.example, https://b.example")

	c, err := EnvDefaults()
	require.NoError(t, err)
	assert.Equal(t, 7100, c.Port)
	assert.Equal(t, "sqlite", c.Store)
	assert.Equal(t, 36*time.Hour, c.DeliveryETA)
	assert.False(t, c.LogJSON)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
	assert.Equal(t, 5.0, c.RateLimit)
	assert.Equal(t, "NPR", c.Currency)
	assert.NoError(t, c.Validate())
}

func TestEnvDefaultsBadFile(t *testing.T) {
	t.Setenv("FARMCART_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := EnvDefaults()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate())
	c.Store = "postgres"
	assert.Error(t, c.Validate())
	c.PostgresDSN = "postgres://localhost/farmcart"
	assert.NoError(t, c.Validate())
	c.Store = "cassandra"
	assert.Error(t, c.Validate())
}
