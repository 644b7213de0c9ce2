// Package config holds the CLI configuration, loadable from a YAML file.
package config

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// Role represents the chosen link role.
type Role string

const (
	RoleListen Role = "listen" // passive: wait to be probed
	RoleDial   Role = "dial"   // active: probe the remote
)

// Config stores all parameters for the udplink CLI. Bind is the local
// "ip:port" UDP address; Remote is required for the dial role. ConsoleAddr
// enables the stats console when set; WatchdogSec enables the unreliable
// ping loop when positive.
type Config struct {
	Role        Role   `yaml:"role"`
	Bind        string `yaml:"bind"`
	Remote      string `yaml:"remote,omitempty"`
	ConsoleAddr string `yaml:"console,omitempty"`
	WatchdogSec int    `yaml:"watchdog_sec"`
	Debug       bool   `yaml:"debug"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	switch cfg.Role {
	case RoleListen, RoleDial:
	default:
		return fmt.Errorf("role must be %q or %q, got %q", RoleListen, RoleDial, cfg.Role)
	}

	if cfg.Bind == "" {
		return fmt.Errorf("bind address is required")
	}
	if _, err := net.ResolveUDPAddr("udp", cfg.Bind); err != nil {
		return fmt.Errorf("invalid bind address %q: %w", cfg.Bind, err)
	}

	if cfg.Role == RoleDial {
		if cfg.Remote == "" {
			return fmt.Errorf("remote address is required for role %q", RoleDial)
		}
		if _, err := net.ResolveUDPAddr("udp", cfg.Remote); err != nil {
			return fmt.Errorf("invalid remote address %q: %w", cfg.Remote, err)
		}
	}

	if cfg.WatchdogSec < 0 {
		return fmt.Errorf("watchdog_sec must not be negative")
	}
	return nil
}
