package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/nxtd-project/nxtd/internal/brick"
	"github.com/nxtd-project/nxtd/internal/config"
	"github.com/nxtd-project/nxtd/internal/datalog"
)

// transferChunk keeps file read/write requests inside the 64-byte frame
// ceiling with room for the header fields.
const transferChunk = 50

func cmdInfo(b *brick.Brick) error {
	info, err := b.GetDeviceInfo()
	if err != nil {
		return err
	}
	fw, err := b.GetFirmwareVersion()
	if err != nil {
		return err
	}

	fmt.Printf("Name:      %s\n", info.Name)
	fmt.Printf("BT addr:   %02X:%02X:%02X:%02X:%02X:%02X\n",
		info.BtAddr[0], info.BtAddr[1], info.BtAddr[2],
		info.BtAddr[3], info.BtAddr[4], info.BtAddr[5])
	fmt.Printf("Firmware:  %s\n", fw)
	fmt.Printf("Free:      %d bytes\n", info.FreeFlash)
	return nil
}

func cmdBattery(b *brick.Brick) error {
	mv, err := b.GetBatteryLevel()
	if err != nil {
		return err
	}
	fmt.Printf("%d mV\n", mv)
	return nil
}

func cmdName(b *brick.Brick, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: name <new-name>")
	}
	return b.SetBrickName(args[0])
}

func cmdLs(b *brick.Brick, args []string) error {
	pattern := "*.*"
	if len(args) > 0 {
		pattern = args[0]
	}

	files, err := b.ListFiles(pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("no files")
		return nil
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Name", "Size"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	var total uint64
	for _, f := range files {
		tw.Append([]string{f.Name, strconv.FormatUint(uint64(f.Len), 10)})
		total += uint64(f.Len)
	}
	tw.SetFooter([]string{fmt.Sprintf("%d files", len(files)), strconv.FormatUint(total, 10)})
	tw.Render()
	return nil
}

// recordTransfer logs a completed transfer to the datalog when it is
// enabled. Recording failures never fail the transfer itself.
func recordTransfer(cfg *config.Config, name string, size uint32, direction string) {
	dl := cfg.GetDaemon().Datalog
	if !dl.Enabled {
		return
	}
	store, err := datalog.NewStore(dl.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", dl.Path).Msg("datalog unavailable, transfer not recorded")
		return
	}
	defer store.Close()
	if err := store.RecordFile(name, size, direction); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("failed to record transfer")
	}
}

func cmdDownload(cfg *config.Config, b *brick.Brick, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: download <file> [dest]")
	}
	name := args[0]
	dest := name
	if len(args) == 2 {
		dest = args[1]
	}

	fh, err := b.FileOpenRead(name)
	if err != nil {
		return err
	}
	defer b.FileClose(fh)

	out := make([]byte, 0, fh.Len)
	for uint32(len(out)) < fh.Len {
		chunk, err := b.FileRead(fh, transferChunk)
		if err != nil {
			return fmt.Errorf("read %s at %d: %w", name, len(out), err)
		}
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk...)
	}

	if err := os.WriteFile(dest, out, 0644); err != nil {
		return err
	}
	recordTransfer(cfg, name, uint32(len(out)), "download")
	fmt.Printf("downloaded %s (%d bytes) to %s\n", name, len(out), dest)
	return nil
}

func cmdUpload(cfg *config.Config, b *brick.Brick, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: upload <file> [name]")
	}
	path := args[0]
	name := filepath.Base(path)
	if len(args) == 2 {
		name = args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Executable and sound files must live in contiguous flash.
	var fh *brick.FileHandle
	switch strings.ToLower(filepath.Ext(name)) {
	case ".rxe", ".sys", ".rtm":
		fh, err = b.FileOpenWriteLinear(name, uint32(len(data)))
	default:
		fh, err = b.FileOpenWrite(name, uint32(len(data)))
	}
	if err != nil {
		return err
	}
	defer b.FileClose(fh)

	for off := 0; off < len(data); off += transferChunk {
		end := off + transferChunk
		if end > len(data) {
			end = len(data)
		}
		if _, err := b.FileWrite(fh, data[off:end]); err != nil {
			return fmt.Errorf("write %s at %d: %w", name, off, err)
		}
	}

	recordTransfer(cfg, name, uint32(len(data)), "upload")
	fmt.Printf("uploaded %s (%d bytes) as %s\n", path, len(data), name)
	return nil
}

func cmdRm(b *brick.Brick, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rm <file>")
	}
	return b.FileDelete(args[0])
}

func cmdStart(b *brick.Brick, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: start <program>")
	}
	return b.StartProgram(args[0])
}

func cmdStop(b *brick.Brick) error {
	return b.StopProgram()
}

func cmdTone(b *brick.Brick, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tone <hz> <ms>")
	}
	freq, err := parseU16(args[0], "frequency")
	if err != nil {
		return err
	}
	dur, err := parseU16(args[1], "duration")
	if err != nil {
		return err
	}
	return b.PlayTone(freq, dur)
}

var sensorTypes = map[string]brick.SensorType{
	"none":       brick.SensorNone,
	"switch":     brick.SensorSwitch,
	"reflection": brick.SensorReflection,
	"light":      brick.SensorLightActive,
	"sound":      brick.SensorSoundDB,
	"lowspeed":   brick.SensorLowSpeed9V,
}

var sensorModes = map[string]brick.SensorMode{
	"raw":     brick.ModeRaw,
	"bool":    brick.ModeBool,
	"edge":    brick.ModeEdge,
	"pulse":   brick.ModePulse,
	"percent": brick.ModePercent,
}

func cmdSensor(b *brick.Brick, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return fmt.Errorf("usage: sensor <port 1-4> [type] [mode]")
	}
	portNum, err := strconv.Atoi(args[0])
	if err != nil || portNum < 1 || portNum > 4 {
		return fmt.Errorf("invalid sensor port %q", args[0])
	}
	port := brick.InPort(portNum - 1)

	if len(args) >= 2 {
		typ, ok := sensorTypes[strings.ToLower(args[1])]
		if !ok {
			return fmt.Errorf("unknown sensor type %q", args[1])
		}
		mode := brick.ModeRaw
		if len(args) == 3 {
			mode, ok = sensorModes[strings.ToLower(args[2])]
			if !ok {
				return fmt.Errorf("unknown sensor mode %q", args[2])
			}
		}
		if err := b.SetInputMode(port, typ, mode); err != nil {
			return err
		}
	}

	vals, err := b.GetInputValues(port)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s (raw %d, scaled %d, valid %t)\n",
		vals.Port, vals, vals.Raw, vals.Scaled, vals.Valid)
	return nil
}

var motorPorts = map[string]brick.OutPort{
	"a":   brick.OutA,
	"b":   brick.OutB,
	"c":   brick.OutC,
	"all": brick.OutAll,
}

func cmdMotor(b *brick.Brick, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: motor <port a|b|c|all> <power -100..100>")
	}
	port, ok := motorPorts[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unknown motor port %q", args[0])
	}
	power, err := strconv.Atoi(args[1])
	if err != nil || power < -100 || power > 100 {
		return fmt.Errorf("invalid power %q", args[1])
	}

	if power == 0 {
		return b.SetOutputState(port, 0, brick.OutModeIdle,
			brick.RegulationIdle, 0, brick.RunStateIdle, brick.RunForever)
	}
	return b.SetOutputState(port, int8(power),
		brick.OutModeOn|brick.OutModeRegulated,
		brick.RegulationMotorSpeed, 0, brick.RunStateRunning, brick.RunForever)
}

func cmdScreen(b *brick.Brick, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: screen [dest.pbm]")
	}
	dest := "screen.pbm"
	if len(args) == 1 {
		dest = args[0]
	}

	data, err := b.GetDisplayData()
	if err != nil {
		return err
	}

	if err := os.WriteFile(dest, displayToPBM(data), 0644); err != nil {
		return err
	}
	fmt.Printf("captured display to %s\n", dest)
	return nil
}

// displayToPBM converts the brick's framebuffer (8 vertical pixels per
// byte, in horizontal bands) into a binary PBM image.
func displayToPBM(data []byte) []byte {
	const rowBytes = (brick.DisplayWidth + 7) / 8

	out := make([]byte, 0, 16+brick.DisplayHeight*rowBytes)
	out = append(out, []byte(fmt.Sprintf("P4\n%d %d\n", brick.DisplayWidth, brick.DisplayHeight))...)

	for y := 0; y < brick.DisplayHeight; y++ {
		band := y / 8
		bit := uint(y % 8)
		var row [rowBytes]byte
		for x := 0; x < brick.DisplayWidth; x++ {
			if data[band*brick.DisplayWidth+x]&(1<<bit) != 0 {
				row[x/8] |= 0x80 >> (uint(x) % 8)
			}
		}
		out = append(out, row[:]...)
	}
	return out
}
