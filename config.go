package stoat

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable settings of an aggregate worker.
type Config struct {
	// SnapshotThreshold is the number of applied events after which a
	// snapshot is persisted and the counter reset. Zero disables snapshots.
	SnapshotThreshold int `yaml:"snapshot_threshold"`

	// IdleTimeout passivates a worker after no message has been processed
	// for this duration, from a quiescent state only. Zero disables it.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MailboxSize is the buffer size of the worker's inbound message channel.
	MailboxSize int `yaml:"mailbox_size"`

	// PendingLimit bounds the queue of commands deferred while a command is
	// in flight. Commands beyond the limit are rejected with
	// ErrPendingQueueFull. Zero means unbounded.
	PendingLimit int `yaml:"pending_limit"`
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		SnapshotThreshold: DefaultSnapshotThreshold,
		IdleTimeout:       0,
		MailboxSize:       64,
		PendingLimit:      0,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.SnapshotThreshold < 0 {
		return fmt.Errorf("stoat: snapshot_threshold must not be negative, got %d", c.SnapshotThreshold)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("stoat: idle_timeout must not be negative, got %s", c.IdleTimeout)
	}
	if c.MailboxSize < 1 {
		return fmt.Errorf("stoat: mailbox_size must be at least 1, got %d", c.MailboxSize)
	}
	if c.PendingLimit < 0 {
		return fmt.Errorf("stoat: pending_limit must not be negative, got %d", c.PendingLimit)
	}
	return nil
}

// LoadConfig reads a Config from a YAML file. Settings absent from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("stoat: failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("stoat: failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the Config to a YAML file.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("stoat: failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("stoat: failed to write config: %w", err)
	}
	return nil
}
