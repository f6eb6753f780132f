package stoat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultSnapshotThreshold, cfg.SnapshotThreshold)
	assert.Equal(t, time.Duration(0), cfg.IdleTimeout)
	assert.Equal(t, 64, cfg.MailboxSize)
	assert.Equal(t, 0, cfg.PendingLimit)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"negative snapshot threshold", func(c *Config) { c.SnapshotThreshold = -1 }, true},
		{"zero snapshot threshold disables snapshots", func(c *Config) { c.SnapshotThreshold = 0 }, false},
		{"negative idle timeout", func(c *Config) { c.IdleTimeout = -time.Second }, true},
		{"zero mailbox", func(c *Config) { c.MailboxSize = 0 }, true},
		{"negative pending limit", func(c *Config) { c.PendingLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("loads settings over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stoat.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"snapshot_threshold: 5\nidle_timeout: 30s\n"), 0o600))

		cfg, err := LoadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, 5, cfg.SnapshotThreshold)
		assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
		// Unset keys keep their defaults.
		assert.Equal(t, 64, cfg.MailboxSize)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stoat.yaml")
		require.NoError(t, os.WriteFile(path, []byte("mailbox_size: 0\n"), 0o600))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("save and reload round-trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stoat.yaml")
		cfg := Config{SnapshotThreshold: 7, IdleTimeout: time.Minute, MailboxSize: 16, PendingLimit: 8}

		require.NoError(t, cfg.Save(path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})
}
