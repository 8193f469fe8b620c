package transport

import (
	"fmt"

	"github.com/tarm/serial"

	"github.com/nxtd-project/nxtd/internal/util"
)

// DefaultSerialBaud is used when the config leaves the baud rate unset.
// An RFCOMM tty ignores the rate, but the serial layer requires one.
const DefaultSerialBaud = 115200

// DialSerial opens a tty already bound to the brick by the OS (e.g. an
// rfcomm device node) and returns a length-prefixed stream transport.
func DialSerial(device string, baud int) (*Stream, error) {
	if baud <= 0 {
		baud = DefaultSerialBaud
	}
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", device, err)
	}
	logger := util.ComponentLogger("serial")
	logger.Info().Str("device", device).Int("baud", baud).Msg("serial port opened")
	return NewStream(port), nil
}
