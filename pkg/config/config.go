// Package config handles configuration loading and validation for the
// provisioning daemon.
package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default config file locations, checked in order when no path is given.
var configPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./provisiond.yaml",
	"~/.config/provisiond/config.yaml",
	"/etc/provision/config.yaml",
}

// Config is the full daemon configuration. Everything has a usable default
// so the daemon runs unconfigured on a freshly flashed image.
type Config struct {
	Adapter AdapterConfig `yaml:"adapter" json:"adapter"`
	Wifi    WifiConfig    `yaml:"wifi" json:"wifi" validate:"required"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// AdapterConfig selects and names the Bluetooth adapter to advertise on.
type AdapterConfig struct {
	// ID is the adapter's hci identifier, e.g. "hci0".
	ID string `yaml:"id" json:"id" validate:"required"`
	// Alias is the name the adapter reports to scanning centrals.
	Alias string `yaml:"alias" json:"alias" validate:"required"`
}

// WifiConfig names the interface association results are reported for.
type WifiConfig struct {
	// Interface is the Wi-Fi network interface name, e.g. "wlan0".
	Interface string `yaml:"interface" json:"interface" validate:"required"`
}

// LoggingConfig configures the append-only log sink.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig configures the loopback-only Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen" validate:"omitempty,hostname_port"`
}

// Load loads configuration from path if one is given (an unreadable path is
// an error); otherwise from the first default location found, or returns
// DefaultConfig if none exists.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}

	for _, p := range configPaths {
		if len(p) > 0 && p[0] == '~' {
			home, err := os.UserHomeDir()
			if err == nil {
				p = filepath.Join(home, p[2:])
			}
		}
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}

	return DefaultConfig(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration against its struct tags.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// Marshal renders cfg as YAML, the format used by both Save and the
// `config show` CLI command.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the configuration the daemon boots with absent any
// config file: a fresh appliance image before first provisioning.
func DefaultConfig() *Config {
	return &Config{
		Adapter: AdapterConfig{
			ID:    "hci0",
			Alias: "PiDevelopDotcom",
		},
		Wifi: WifiConfig{
			Interface: "wlan0",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "/var/log/provision/ble.log",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9120",
		},
	}
}
