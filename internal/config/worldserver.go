package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorldServer holds all configuration for the world server.
type WorldServer struct {
	LogLevel string `yaml:"log_level"`

	// Simulation
	TickInterval     Duration `yaml:"tick_interval"`
	AutosaveInterval Duration `yaml:"autosave_interval"`
	InviteTimeout    Duration `yaml:"invite_timeout"`

	// Per-character cadences and countdowns
	HPRegenInterval     Duration `yaml:"hp_regen_interval"`
	SPRegenInterval     Duration `yaml:"sp_regen_interval"`
	AffectDecayInterval Duration `yaml:"affect_decay_interval"`
	RestRegenDelay      Duration `yaml:"rest_regen_delay"`
	KnockoutDelay       Duration `yaml:"knockout_delay"`
	LogoutDelay         Duration `yaml:"logout_delay"`

	// Database
	Database DatabaseConfig `yaml:"database"`
}

// DefaultWorldServer returns WorldServer config with sensible defaults.
func DefaultWorldServer() WorldServer {
	return WorldServer{
		LogLevel:            "info",
		TickInterval:        Duration(100 * time.Millisecond),
		AutosaveInterval:    Duration(5 * time.Minute),
		InviteTimeout:       Duration(30 * time.Second),
		HPRegenInterval:     Duration(3 * time.Second),
		SPRegenInterval:     Duration(3 * time.Second),
		AffectDecayInterval: Duration(time.Second),
		RestRegenDelay:      Duration(5 * time.Second),
		KnockoutDelay:       Duration(30 * time.Second),
		LogoutDelay:         Duration(15 * time.Second),
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "mudgo",
			Password: "mudgo",
			DBName:   "mudgo",
			SSLMode:  "disable",
		},
	}
}

// LoadWorldServer loads the world server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadWorldServer(path string) (WorldServer, error) {
	cfg := DefaultWorldServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

func (c WorldServer) validate() error {
	intervals := map[string]Duration{
		"tick_interval":         c.TickInterval,
		"autosave_interval":     c.AutosaveInterval,
		"invite_timeout":        c.InviteTimeout,
		"hp_regen_interval":     c.HPRegenInterval,
		"sp_regen_interval":     c.SPRegenInterval,
		"affect_decay_interval": c.AffectDecayInterval,
		"knockout_delay":        c.KnockoutDelay,
		"logout_delay":          c.LogoutDelay,
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if c.RestRegenDelay < 0 {
		return fmt.Errorf("rest_regen_delay must not be negative, got %v", c.RestRegenDelay)
	}
	return nil
}
