// Package config handles configuration loading, validation, and persistence
// for the nxtd daemon.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultAPIPort    = 5310
	DefaultSerialBaud = 115200
)

// Config is the root configuration structure for nxtd.
type Config struct {
	mu   sync.RWMutex
	path string

	Brick  BrickConfig  `json:"brick"`
	Daemon DaemonConfig `json:"daemon"`
}

// BrickConfig describes how to reach the brick.
type BrickConfig struct {
	// Transport is "usb", "bluetooth" or "serial".
	Transport     string `json:"transport"`
	BluetoothAddr string `json:"bluetooth_addr"`
	SerialDevice  string `json:"serial_device"`
	SerialBaud    int    `json:"serial_baud"`
}

// DaemonConfig contains daemon application configuration.
type DaemonConfig struct {
	API       APIConfig       `json:"api"`
	MQTT      MQTTConfig      `json:"mqtt"`
	Datalog   DatalogConfig   `json:"datalog"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Logging   LoggingConfig   `json:"logging"`
}

// APIConfig holds HTTP monitor API settings.
type APIConfig struct {
	Enabled        bool     `json:"enabled"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	CAFile    string `json:"ca_file"`
	ClientID  string `json:"client_id"`
}

// DatalogConfig holds sample persistence settings.
type DatalogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// TelemetryConfig holds the polling loop settings. SensorPorts lists
// the input ports (1-4) the poller samples each cycle.
type TelemetryConfig struct {
	PollIntervalSec int   `json:"poll_interval_sec"`
	SensorPorts     []int `json:"sensor_ports"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Brick: BrickConfig{
			Transport:  "usb",
			SerialBaud: DefaultSerialBaud,
		},
		Daemon: DaemonConfig{
			API: APIConfig{
				Enabled: true,
				Port:    DefaultAPIPort,
			},
			MQTT: MQTTConfig{
				Enabled:   false,
				BrokerURL: "localhost",
				Port:      8883,
				UseTLS:    true,
			},
			Datalog: DatalogConfig{
				Enabled: true,
				Path:    "nxtd.db",
			},
			Telemetry: TelemetryConfig{
				PollIntervalSec: 10,
			},
			Logging: LoggingConfig{
				Level:      "info",
				Directory:  "logs",
				MaxSizeMB:  10,
				MaxBackups: 5,
			},
		},
	}
}

// Load reads configuration from a JSON file, creating a default one on
// first run.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save config to persist any new default fields added in code updates.
	// This ensures config.json always reflects the complete set of options.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetBrick returns a copy of the brick connection configuration.
func (c *Config) GetBrick() BrickConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Brick
}

// SetBrick updates the brick connection configuration.
func (c *Config) SetBrick(data BrickConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Brick = data
}

// GetDaemon returns a copy of the daemon configuration.
func (c *Config) GetDaemon() DaemonConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Daemon
}

// SetDaemon updates the daemon configuration.
func (c *Config) SetDaemon(data DaemonConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Daemon = data
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}
