package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "datos", cfg.Fixtures.Dir)
	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, 5*time.Second, cfg.Refresh.BannerTTL)
	assert.Equal(t, []float64{40.4168, -3.7038}, cfg.Map.Center)
	assert.Equal(t, 6, cfg.Map.Zoom)
	assert.Equal(t, "1.0.0", cfg.Envelope.Version)
	assert.Equal(t, 0, cfg.Fetch.Retries)
	assert.Equal(t, DefaultPrecache, cfg.Offline.Precache)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "observatorio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fixtures:
  base_url: https://datos.example.org/observatorio/
refresh:
  interval: 1m
offline:
  precache: ["/", "/estilo.css"]
`), 0o644))
	t.Setenv("OBSERVATORIO_SERVER_ADDR", ":9090")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://datos.example.org/observatorio/", cfg.Fixtures.BaseURL)
	assert.Equal(t, time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"/", "/estilo.css"}, cfg.Offline.Precache)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Fixtures: Fixtures{Dir: "datos"},
			Refresh:  Refresh{Interval: time.Minute},
			Map:      Map{Center: []float64{40, -3}},
		}
	}

	c := valid()
	assert.NoError(t, c.Validate())

	c = valid()
	c.Map.Center = []float64{40}
	assert.Error(t, c.Validate())

	c = valid()
	c.Refresh.Interval = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Fixtures.Dir = ""
	assert.Error(t, c.Validate())

	c.Fixtures.BaseURL = "https://datos.example.org/"
	assert.NoError(t, c.Validate())
}
