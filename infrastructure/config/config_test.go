package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "washdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
database:
  path: /var/lib/washdesk/data.db
desk:
  page_size: 50
cache:
  ttl: 1m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/washdesk/data.db", cfg.Database.Path)
	assert.Equal(t, 50, cfg.Desk.PageSize)
	assert.Equal(t, int64(1), cfg.Desk.DefaultOperatorID)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("env wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "washdesk.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644))
		t.Setenv("APP_ADDR", ":7000")
		t.Setenv("SQLITE_PATH", "env.db")
		t.Setenv("DEFAULT_OPERATOR_ID", "42")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Server.Addr)
		assert.Equal(t, "env.db", cfg.Database.Path)
		assert.Equal(t, int64(42), cfg.Desk.DefaultOperatorID)
	})

	t.Run("invalid page size", func(t *testing.T) {
		t.Setenv("PAGE_SIZE", "lots")
		_, err := Load("")
		assert.ErrorContains(t, err, "PAGE_SIZE")
	})

	t.Run("config path", func(t *testing.T) {
		t.Setenv("WASHDESK_CONFIG", "/etc/washdesk.yaml")
		assert.Equal(t, "/etc/washdesk.yaml", Path("washdesk.yaml"))
	})
}

func TestDurationsFallBack(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout())
	assert.Equal(t, 15*time.Second, cfg.APITimeout())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "washdesk.yaml")
	cfg := DefaultConfig()
	cfg.Server.Addr = ":1234"
	require.NoError(t, cfg.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":1234", back.Server.Addr)
}
