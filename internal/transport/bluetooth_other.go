//go:build !linux

package transport

import "errors"

// DialBluetooth needs raw RFCOMM sockets, which this package only
// implements for Linux. On other platforms bind the brick to a tty with
// the OS bluetooth stack and use DialSerial instead.
func DialBluetooth(addr string) (*Stream, error) {
	return nil, errors.New("bluetooth sockets are unsupported on this platform, bind the brick to a serial port instead")
}
