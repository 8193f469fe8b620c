//go:build linux

package transport

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/nxtd-project/nxtd/internal/util"
)

// Bluetooth identification of the brick. Discovery and pairing belong to
// the host stack; this package only dials an already-known address.
const (
	// RFCOMMChannel is the serial channel the brick listens on.
	RFCOMMChannel = 1

	// BluetoothDeviceClass is the class-of-device the brick advertises,
	// exposed for external discovery tooling to filter on.
	BluetoothDeviceClass = 0x804
)

// The adapter probe runs once per process and its result is kept for the
// process lifetime; concurrent first callers race safely with a single
// winner and there is no teardown.
var (
	adapterOnce sync.Once
	adapterErr  error
)

func initAdapter() error {
	adapterOnce.Do(func() {
		fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
		if err != nil {
			adapterErr = fmt.Errorf("bluetooth adapter unavailable: %w", err)
			return
		}
		unix.Close(fd)
		logger := util.ComponentLogger("bluetooth")
		logger.Debug().Msg("bluetooth adapter available")
	})
	return adapterErr
}

// DialBluetooth connects to the brick at addr ("AA:BB:CC:DD:EE:FF") over
// RFCOMM and returns a length-prefixed stream transport.
func DialBluetooth(addr string) (*Stream, error) {
	if err := initAdapter(); err != nil {
		return nil, err
	}
	bdaddr, err := parseBluetoothAddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("rfcomm socket: %w", err)
	}
	sa := &unix.SockaddrRFCOMM{Addr: bdaddr, Channel: RFCOMMChannel}
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rfcomm connect %s: %w", addr, err)
	}

	logger := util.ComponentLogger("bluetooth")
	logger.Info().Str("addr", addr).Msg("rfcomm connected")
	return NewStream(os.NewFile(uintptr(fd), "rfcomm:"+addr)), nil
}

// parseBluetoothAddr converts "AA:BB:CC:DD:EE:FF" to the kernel's
// bdaddr byte order (least significant byte first).
func parseBluetoothAddr(addr string) ([6]byte, error) {
	var out [6]byte
	parts := strings.Split(addr, ":")
	if len(parts) != 6 {
		return out, fmt.Errorf("invalid bluetooth address %q", addr)
	}
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return out, fmt.Errorf("invalid bluetooth address %q: %w", addr, err)
		}
		out[5-i] = byte(v)
	}
	return out, nil
}
