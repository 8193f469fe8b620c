// Package brick implements the request/reply engine and the command
// surface of the NXT brick. Every operation builds one packet, exchanges
// it over the transport, and decodes one reply. Nothing here retries:
// transport, parse and device failures all surface to the caller
// unchanged, and a reply whose opcode does not match the request is a
// fatal protocol inconsistency.
//
// A Brick may be shared across goroutines, but only individual transport
// calls are serialized; concurrent exchanges can interleave their
// replies. Callers needing concurrency must keep one exchange in flight
// at a time.
package brick

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nxtd-project/nxtd/internal/protocol"
	"github.com/nxtd-project/nxtd/internal/transport"
	"github.com/nxtd-project/nxtd/internal/util"
)

// ErrReplyMismatch reports a reply whose opcode differs from the
// request's. There is no resynchronization: the exchange is lost.
var ErrReplyMismatch = errors.New("brick: reply opcode mismatch")

// Brick is a connection to one physical brick. All commands multiplex
// over its single underlying channel.
type Brick struct {
	transport transport.Transport
	logger    zerolog.Logger
}

// New wraps an established transport.
func New(t transport.Transport) *Brick {
	return &Brick{
		transport: t,
		logger:    util.ComponentLogger("brick"),
	}
}

// OpenFirstUSB connects to the first brick found on the USB bus.
func OpenFirstUSB() (*Brick, error) {
	t, err := transport.OpenFirstUSB()
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// OpenAllUSB connects to every brick on the USB bus.
func OpenAllUSB() ([]*Brick, error) {
	ts, err := transport.OpenAllUSB()
	if err != nil {
		return nil, err
	}
	bricks := make([]*Brick, len(ts))
	for i, t := range ts {
		bricks[i] = New(t)
	}
	return bricks, nil
}

// ConnectBluetooth connects to the brick at the given Bluetooth address.
func ConnectBluetooth(addr string) (*Brick, error) {
	t, err := transport.DialBluetooth(addr)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// ConnectSerial connects through a tty the OS has already bound to the
// brick.
func ConnectSerial(device string, baud int) (*Brick, error) {
	t, err := transport.DialSerial(device, baud)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// Close releases the underlying transport. Handles obtained from this
// brick are meaningless afterwards.
func (b *Brick) Close() error {
	return b.transport.Close()
}

// send serializes and transmits one request. With checkStatus set it
// also receives the reply, validates opcode correlation, and consumes
// and classifies the status byte. That is the pattern for commands whose
// reply carries nothing but status.
func (b *Brick) send(pkt *protocol.Packet, checkStatus bool) error {
	var buf [protocol.MaxFrameSize]byte
	frame, err := pkt.Serialize(buf[:])
	if err != nil {
		return err
	}
	if _, err := b.transport.Send(frame); err != nil {
		return err
	}
	if checkStatus {
		reply, err := b.recv(pkt.Opcode)
		if err != nil {
			return err
		}
		return reply.CheckStatus()
	}
	return nil
}

// recv receives exactly one reply and validates that it answers op.
func (b *Brick) recv(op protocol.Opcode) (*protocol.Packet, error) {
	var buf [protocol.MaxFrameSize]byte
	frame, err := b.transport.Recv(buf[:])
	if err != nil {
		return nil, err
	}
	reply, err := protocol.Parse(frame)
	if err != nil {
		return nil, err
	}
	if reply.Opcode != op {
		b.logger.Error().
			Str("expected", op.String()).
			Str("received", reply.Opcode.String()).
			Msg("reply opcode mismatch")
		return nil, fmt.Errorf("%w: sent %s, got %s", ErrReplyMismatch, op, reply.Opcode)
	}
	return reply, nil
}

// sendRecv pairs one request with one reply. The reply's status byte is
// left unconsumed: the caller checks it, then reads the fields after it.
func (b *Brick) sendRecv(pkt *protocol.Packet) (*protocol.Packet, error) {
	if err := b.send(pkt, false); err != nil {
		return nil, err
	}
	return b.recv(pkt.Opcode)
}

// StartProgram starts a compiled program file on the brick.
func (b *Brick) StartProgram(name string) error {
	pkt := protocol.New(protocol.OpStartProgram)
	if err := pkt.PushFilename(name); err != nil {
		return err
	}
	return b.send(pkt, true)
}

// StopProgram stops the running program, if any.
func (b *Brick) StopProgram() error {
	return b.send(protocol.New(protocol.OpStopProgram), true)
}

// GetCurrentProgramName returns the name of the running program.
func (b *Brick) GetCurrentProgramName() (string, error) {
	reply, err := b.sendRecv(protocol.New(protocol.OpGetCurrentProgramName))
	if err != nil {
		return "", err
	}
	if err := reply.CheckStatus(); err != nil {
		return "", err
	}
	return reply.ReadFilename()
}

// PlaySoundFile plays a sound file stored on the brick, optionally
// looping until stopped.
func (b *Brick) PlaySoundFile(name string, loop bool) error {
	pkt := protocol.New(protocol.OpPlaySoundFile)
	pkt.PushBool(loop)
	if err := pkt.PushFilename(name); err != nil {
		return err
	}
	return b.send(pkt, true)
}

// PlayTone plays a tone at the given frequency for the given duration.
func (b *Brick) PlayTone(freqHz, durationMs uint16) error {
	pkt := protocol.New(protocol.OpPlayTone)
	pkt.PushU16(freqHz)
	pkt.PushU16(durationMs)
	return b.send(pkt, true)
}

// StopSoundPlayback stops any sound currently playing.
func (b *Brick) StopSoundPlayback() error {
	return b.send(protocol.New(protocol.OpStopSoundPlayback), true)
}

// GetBatteryLevel returns the battery voltage in millivolts.
func (b *Brick) GetBatteryLevel() (uint16, error) {
	reply, err := b.sendRecv(protocol.New(protocol.OpGetBatteryLevel))
	if err != nil {
		return 0, err
	}
	if err := reply.CheckStatus(); err != nil {
		return 0, err
	}
	return reply.ReadU16()
}

// KeepAlive resets the brick's auto-sleep timer and returns the current
// sleep limit in milliseconds.
func (b *Brick) KeepAlive() (uint32, error) {
	reply, err := b.sendRecv(protocol.New(protocol.OpKeepAlive))
	if err != nil {
		return 0, err
	}
	if err := reply.CheckStatus(); err != nil {
		return 0, err
	}
	return reply.ReadU32()
}
