package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concord-ai/concord/internal/config"
)

func TestInitialize(t *testing.T) {
	t.Run("writes a valid config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "concord.yml")

		require.NoError(t, Initialize(path, "dev", false))

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "dev", cfg.Instance)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "concord.yml")
		require.NoError(t, os.WriteFile(path, []byte("existing"), 0644))

		err := Initialize(path, "dev", false)
		assert.ErrorContains(t, err, "already exists")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "existing", string(data))
	})

	t.Run("overwrites with force", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "concord.yml")
		require.NoError(t, os.WriteFile(path, []byte("existing"), 0644))

		require.NoError(t, Initialize(path, "dev", true))

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "dev", cfg.Instance)
	})

	t.Run("rejects empty instance", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "concord.yml")
		assert.ErrorContains(t, Initialize(path, "", false), "instance name is required")
	})
}
