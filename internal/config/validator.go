package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateBrick(&cfg.Brick, result)
	validateDaemon(&cfg.Daemon, result)

	return result
}

func validateBrick(brick *BrickConfig, result *ValidationResult) {
	switch brick.Transport {
	case "usb":
	case "bluetooth":
		if !validBluetoothAddr(brick.BluetoothAddr) {
			result.AddError("brick.bluetooth_addr",
				"must be a colon-separated address like 00:16:53:01:02:03")
		}
	case "serial":
		if strings.TrimSpace(brick.SerialDevice) == "" {
			result.AddError("brick.serial_device", "serial device path is required")
		}
		if brick.SerialBaud <= 0 {
			result.AddError("brick.serial_baud", "baud rate must be positive")
		}
	default:
		result.AddError("brick.transport",
			fmt.Sprintf("unknown transport %q (usb, bluetooth or serial)", brick.Transport))
	}
}

func validateDaemon(daemon *DaemonConfig, result *ValidationResult) {
	if daemon.API.Enabled {
		if daemon.API.Port < 1 || daemon.API.Port > 65535 {
			result.AddError("daemon.api.port", "port must be between 1 and 65535")
		}
	}

	if daemon.MQTT.Enabled {
		if strings.TrimSpace(daemon.MQTT.BrokerURL) == "" {
			result.AddError("daemon.mqtt.broker_url", "broker URL is required when MQTT is enabled")
		}
		if daemon.MQTT.Port < 1 || daemon.MQTT.Port > 65535 {
			result.AddError("daemon.mqtt.port", "port must be between 1 and 65535")
		}
		if (daemon.MQTT.CertFile == "") != (daemon.MQTT.KeyFile == "") {
			result.AddError("daemon.mqtt", "cert_file and key_file must be set together")
		}
		if !daemon.MQTT.UseTLS {
			result.AddWarning("daemon.mqtt.use_tls", "publishing telemetry without TLS")
		}
	}

	if daemon.Datalog.Enabled && strings.TrimSpace(daemon.Datalog.Path) == "" {
		result.AddError("daemon.datalog.path", "database path is required when datalog is enabled")
	}

	if daemon.Telemetry.PollIntervalSec <= 0 {
		result.AddError("daemon.telemetry.poll_interval_sec", "poll interval must be positive")
	}
	for _, p := range daemon.Telemetry.SensorPorts {
		if p < 1 || p > 4 {
			result.AddError("daemon.telemetry.sensor_ports",
				fmt.Sprintf("sensor port %d out of range (1-4)", p))
		}
	}

	switch daemon.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		result.AddWarning("daemon.logging.level",
			fmt.Sprintf("unknown log level %q, falling back to info", daemon.Logging.Level))
	}
}

func validBluetoothAddr(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 6 {
		return false
	}
	for _, p := range parts {
		if len(p) != 2 {
			return false
		}
		for i := 0; i < 2; i++ {
			c := p[i]
			ok := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
			if !ok {
				return false
			}
		}
	}
	return true
}
