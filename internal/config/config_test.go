package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"micropatrons/pkg/db"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("USER", "root")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "5173", cfg.ServerPort)
		assert.Equal(t, "/api", cfg.APIBasePath)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
		assert.False(t, cfg.SeedOnStart)
		assert.Equal(t, db.DriverSQLite, cfg.DB.Driver)
		assert.Equal(t, "micropatrons.db", cfg.DB.Path)
		assert.Equal(t, "user", cfg.DB.User)
		assert.Equal(t, 5*time.Second, cfg.DB.BusyTimeout)
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("SEED_ON_START", "true")
		t.Setenv("DB_DRIVER", "memory")
		t.Setenv("DB_BUSY_TIMEOUT", "250ms")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.ServerPort)
		assert.True(t, cfg.SeedOnStart)
		assert.Equal(t, db.DriverMemory, cfg.DB.Driver)
		assert.Equal(t, 250*time.Millisecond, cfg.DB.BusyTimeout)
	})

	t.Run("Env File", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.env")
		require.NoError(t, os.WriteFile(path, []byte("DB_PATH=/tmp/ledger-test.db\nLOG_FORMAT=text\n"), 0o600))
		t.Setenv("DB_PATH", "")
		require.NoError(t, os.Unsetenv("DB_PATH"))
		t.Setenv("LOG_FORMAT", "")
		require.NoError(t, os.Unsetenv("LOG_FORMAT"))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/ledger-test.db", cfg.DB.Path)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("Invalid Driver", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("DB_DRIVER", "mongo")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "invalid DB_DRIVER")
	})

	t.Run("Invalid Timeout", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("REQUEST_TIMEOUT", "soon")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "invalid application config")
	})
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
