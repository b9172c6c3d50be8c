package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ROLLBOOK_FILE", "ROLLBOOK_MAX_RECORDS", "ROLLBOOK_NO_SYNC",
		"ROLLBOOK_LOG_LEVEL", "ROLLBOOK_LOG_FORMAT", "ROLLBOOK_USERS",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults without env file", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, "student.txt", cfg.FileName)
		assert.Equal(t, 2000, cfg.MaxRecords)
		assert.False(t, cfg.NoSync)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Empty(t, cfg.Users)
	})

	t.Run("values from env file", func(t *testing.T) {
		clearEnv(t)

		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte(
			"ROLLBOOK_FILE=/tmp/records.bin\n"+
				"ROLLBOOK_MAX_RECORDS=-1\n"+
				"ROLLBOOK_NO_SYNC=true\n"+
				"ROLLBOOK_USERS='admin:admin:$2a$10$abc,teacher:teacher:$2a$10$def'\n",
		), 0644))

		cfg, err := Load(envFile)
		require.NoError(t, err)

		assert.Equal(t, "/tmp/records.bin", cfg.FileName)
		assert.Equal(t, -1, cfg.MaxRecords)
		assert.True(t, cfg.NoSync)
		assert.Equal(t, []User{
			{Name: "admin", Role: "admin", Hash: "$2a$10$abc"},
			{Name: "teacher", Role: "teacher", Hash: "$2a$10$def"},
		}, cfg.Users)
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROLLBOOK_FILE", "from-env.bin")

		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("ROLLBOOK_FILE=from-file.bin\n"), 0644))

		cfg, err := Load(envFile)
		require.NoError(t, err)
		assert.Equal(t, "from-env.bin", cfg.FileName)
	})

	t.Run("invalid values are reported", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROLLBOOK_MAX_RECORDS", "0")
		t.Setenv("ROLLBOOK_LOG_FORMAT", "xml")

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ROLLBOOK_MAX_RECORDS")
		assert.Contains(t, err.Error(), "ROLLBOOK_LOG_FORMAT")
	})

	t.Run("malformed users", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROLLBOOK_USERS", "admin:admin")

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.Error(t, err)
	})
}
