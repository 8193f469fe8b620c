// nxtd - LEGO NXT brick client and monitor daemon.
//
// nxtd speaks the brick's binary command protocol over USB, Bluetooth
// or serial, offering one-shot commands (file transfer, motor and
// sensor control, sound, screen capture) and a monitor mode that polls
// telemetry, records it to SQLite, publishes it over MQTT and serves a
// REST API.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/nxtd-project/nxtd/internal/brick"
	"github.com/nxtd-project/nxtd/internal/config"
	"github.com/nxtd-project/nxtd/internal/util"
)

const (
	AppName    = "nxtd"
	AppVersion = "1.0.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logCfg := util.LogConfig{
		Level:      cfg.Daemon.Logging.Level,
		Directory:  cfg.Daemon.Logging.Directory,
		MaxBackups: cfg.Daemon.Logging.MaxBackups,
		Console:    true,
	}
	if err := util.InitLogger(logCfg); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Msg("configuration validation failed, please fix the errors above")
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "monitor" {
		runMonitor(cfg)
		return
	}

	b, err := dial(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to brick")
	}
	defer b.Close()

	if err := runCommand(cfg, b, cmd, args); err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("command failed")
	}
}

// dial connects to the brick using the configured transport.
func dial(cfg *config.Config) (*brick.Brick, error) {
	bc := cfg.GetBrick()
	switch bc.Transport {
	case "usb":
		return brick.OpenFirstUSB()
	case "bluetooth":
		if runtime.GOOS != "linux" {
			return nil, fmt.Errorf("direct bluetooth sockets are linux-only; bind the brick to a tty and use the serial transport")
		}
		return brick.ConnectBluetooth(bc.BluetoothAddr)
	case "serial":
		return brick.ConnectSerial(bc.SerialDevice, bc.SerialBaud)
	default:
		return nil, fmt.Errorf("unknown transport %q", bc.Transport)
	}
}

func runCommand(cfg *config.Config, b *brick.Brick, cmd string, args []string) error {
	switch cmd {
	case "info":
		return cmdInfo(b)
	case "battery":
		return cmdBattery(b)
	case "name":
		return cmdName(b, args)
	case "ls":
		return cmdLs(b, args)
	case "download":
		return cmdDownload(cfg, b, args)
	case "upload":
		return cmdUpload(cfg, b, args)
	case "rm":
		return cmdRm(b, args)
	case "start":
		return cmdStart(b, args)
	case "stop":
		return cmdStop(b)
	case "tone":
		return cmdTone(b, args)
	case "sensor":
		return cmdSensor(b, args)
	case "motor":
		return cmdMotor(b, args)
	case "screen":
		return cmdScreen(b, args)
	case "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s v%s - NXT brick client

Usage: %s <command> [args]

Commands:
  info                      show brick identity and firmware versions
  battery                   show battery voltage
  name <new-name>           rename the brick
  ls [pattern]              list files on the brick
  download <file> [dest]    copy a file from the brick
  upload <file> [name]      copy a program or data file to the brick
  rm <file>                 delete a file from the brick
  start <program>           start a program
  stop                      stop the running program
  tone <hz> <ms>            play a tone
  sensor <port> [type mode] read a sensor port
  motor <port> <power>      run a motor (power -100..100, 0 stops)
  screen [dest.pbm]         capture the brick's display
  monitor                   run the telemetry daemon (API, MQTT, datalog)
`, AppName, AppVersion, AppName)
}

// parseU16 parses a decimal argument into a uint16.
func parseU16(s, what string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return uint16(v), nil
}
