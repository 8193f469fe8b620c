// Package transport moves opaque protocol frames between the host and a
// brick. Two framing disciplines exist: USB bulk transfers, where one
// transfer is one message, and byte streams (Bluetooth RFCOMM, serial
// ttys), where a 2-byte little-endian length prefix added by this
// package marks the message boundary.
//
// Each Send or Recv holds an exclusive lock for the duration of that one
// call only. A full request/reply round trip is NOT atomic: two
// concurrent exchanges on a shared transport can interleave and cross
// their replies. Callers that share a transport must serialize whole
// exchanges themselves.
package transport

import "errors"

// Transport is one byte channel to one brick. Implementations either
// complete a call with data or fail after their timeout or I/O error;
// there is no way to abort an in-flight call.
type Transport interface {
	// Send transmits one message and returns the number of payload
	// bytes written.
	Send(data []byte) (int, error)

	// Recv receives one message into buf and returns the filled
	// subslice.
	Recv(buf []byte) ([]byte, error)

	Close() error
}

var (
	ErrNoDevice      = errors.New("transport: no brick found")
	ErrShortWrite    = errors.New("transport: short write")
	ErrOversizeFrame = errors.New("transport: frame exceeds receive buffer")
	ErrClosed        = errors.New("transport: closed")
)
