package stamp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-stamp/layering"
)

// ErrMissingVersion indicates a Config without a CurrentVersion.
var ErrMissingVersion = errors.New("stamp: current version is required")

// Config is the per-invocation contract. Nil pointer fields take their
// defaults from DefaultConfig.
type Config struct {
	CurrentVersion        string   `json:"currentVersion" yaml:"current_version"`
	ClearAllOnMajorUpdate *bool    `json:"clearAllOnMajorUpdate,omitempty" yaml:"clear_all_on_major_update,omitempty"`
	ClearSpecificKeys     []string `json:"clearSpecificKeys,omitempty" yaml:"clear_specific_keys,omitempty"`
	MigrateData           *bool    `json:"migrateData,omitempty" yaml:"migrate_data,omitempty"`
	ShowUserNotification  *bool    `json:"showUserNotification,omitempty" yaml:"show_user_notification,omitempty"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ClearAllOnMajorUpdate: Bool(false),
		ClearSpecificKeys:     []string{},
		MigrateData:           Bool(true),
		ShowUserNotification:  Bool(true),
	}
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// WithDefaults fills every unset field from DefaultConfig.
func (c Config) WithDefaults() Config {
	merged := layering.MergeLayers(c, DefaultConfig())
	merged.CurrentVersion = strings.TrimSpace(merged.CurrentVersion)
	return merged
}

// Validate reports configuration that cannot drive a version check.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CurrentVersion) == "" {
		return ErrMissingVersion
	}
	for _, key := range c.ClearSpecificKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("stamp: clear_specific_keys: %w", ErrEmptyKey)
		}
	}
	return nil
}

// settings is a resolved Config with the pointers dereferenced.
type settings struct {
	currentVersion string
	clearAll       bool
	clearKeys      []string
	migrate        bool
	notify         bool
}

func (c Config) resolve() (settings, error) {
	merged := c.WithDefaults()
	if err := merged.Validate(); err != nil {
		return settings{}, err
	}
	return settings{
		currentVersion: merged.CurrentVersion,
		clearAll:       *merged.ClearAllOnMajorUpdate,
		clearKeys:      merged.ClearSpecificKeys,
		migrate:        *merged.MigrateData,
		notify:         *merged.ShowUserNotification,
	}, nil
}
