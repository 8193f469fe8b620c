package protocol

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

const (
	// MaxFrameSize is the hardware's maximum message size including the
	// type and opcode bytes.
	MaxFrameSize = 64

	// FilenameLen is the fixed width of a filename field, including the
	// null terminator.
	FilenameLen = 20
)

// Packet is one protocol message: a type tag, an opcode and a payload.
// Outgoing packets are built by appending typed fields; incoming replies
// are consumed through a read cursor over the payload. The status byte
// of a reply is part of the payload and is consumed by CheckStatus.
type Packet struct {
	Type   PacketType
	Opcode Opcode

	data []byte
	off  int
}

// New creates an outgoing request packet. The type tag follows the
// opcode's class: system calls get TypeSystem, direct commands TypeDirect.
func New(op Opcode) *Packet {
	typ := TypeDirect
	if op.IsSystem() {
		typ = TypeSystem
	}
	return &Packet{Type: typ, Opcode: op}
}

// NewNoReply creates an outgoing request for which the brick must not
// send a reply.
func NewNoReply(op Opcode) *Packet {
	typ := TypeDirectNoReply
	if op.IsSystem() {
		typ = TypeSystemNoReply
	}
	return &Packet{Type: typ, Opcode: op}
}

// Parse decodes a received frame. The type and opcode bytes are
// validated against their closed tables; the rest of the frame becomes
// the payload with the read cursor at offset 0.
func Parse(frame []byte) (*Packet, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrShortPayload, len(frame))
	}
	typ, err := ParsePacketType(frame[0])
	if err != nil {
		return nil, err
	}
	op, err := ParseOpcode(frame[1])
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(frame)-2)
	copy(data, frame[2:])
	return &Packet{Type: typ, Opcode: op, data: data}, nil
}

// CheckStatus consumes the status byte at the cursor and converts a
// non-success value into a *DeviceError. Called once per reply, before
// any field reads.
func (p *Packet) CheckStatus() error {
	b, err := p.ReadU8()
	if err != nil {
		return err
	}
	status, err := ParseStatus(b)
	if err != nil {
		return err
	}
	return status.Err()
}

// Serialize writes the frame into buf and returns the used prefix.
// Frames larger than MaxFrameSize (or buf) are rejected.
func (p *Packet) Serialize(buf []byte) ([]byte, error) {
	n := 2 + len(p.data)
	if n > MaxFrameSize || n > len(buf) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	buf[0] = byte(p.Type)
	buf[1] = byte(p.Opcode)
	copy(buf[2:], p.data)
	return buf[:n], nil
}

// Len returns the current payload length.
func (p *Packet) Len() int {
	return len(p.data)
}

// Remaining returns the number of unread payload bytes.
func (p *Packet) Remaining() int {
	return len(p.data) - p.off
}

// Write side. Fields append in call order; there is no write cursor.

func (p *Packet) PushU8(v uint8) {
	p.data = append(p.data, v)
}

func (p *Packet) PushI8(v int8) {
	p.data = append(p.data, byte(v))
}

func (p *Packet) PushU16(v uint16) {
	p.data = append(p.data, byte(v), byte(v>>8))
}

func (p *Packet) PushU32(v uint32) {
	p.data = append(p.data, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (p *Packet) PushBool(v bool) {
	if v {
		p.data = append(p.data, 1)
	} else {
		p.data = append(p.data, 0)
	}
}

func (p *Packet) PushBytes(data []byte) {
	p.data = append(p.data, data...)
}

// PushFilename appends a fixed 20-byte filename field: the ASCII name
// followed by null padding. The name plus its terminator must fit.
func (p *Packet) PushFilename(name string) error {
	if len(name)+1 > FilenameLen {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	for i := 0; i < len(name); i++ {
		if name[i] > 0x7F {
			return fmt.Errorf("%w: %q", ErrNameNotASCII, name)
		}
	}
	p.data = append(p.data, name...)
	p.data = append(p.data, make([]byte, FilenameLen-len(name))...)
	return nil
}

// PushString appends a bounded string field occupying exactly maxLen
// bytes: the text followed by null padding. Text plus terminator must
// fit within maxLen.
func (p *Packet) PushString(s string, maxLen int) error {
	if len(s)+1 > maxLen {
		return fmt.Errorf("%w: %d bytes into %d", ErrStringTooLong, len(s), maxLen)
	}
	p.data = append(p.data, s...)
	p.data = append(p.data, make([]byte, maxLen-len(s))...)
	return nil
}

// Read side. Each read advances the cursor; reading past the end is a
// parse failure. Multi-byte reads that fail partway rewind the cursor to
// its pre-call offset, so a failed read never leaves bytes half-consumed.

func (p *Packet) ReadU8() (uint8, error) {
	if p.off >= len(p.data) {
		return 0, fmt.Errorf("%w: offset %d", ErrShortPayload, p.off)
	}
	b := p.data[p.off]
	p.off++
	return b, nil
}

func (p *Packet) ReadI8() (int8, error) {
	b, err := p.ReadU8()
	return int8(b), err
}

func (p *Packet) ReadBool() (bool, error) {
	b, err := p.ReadU8()
	return b != 0, err
}

func (p *Packet) ReadU16() (uint16, error) {
	start := p.off
	b0, err := p.ReadU8()
	if err != nil {
		return 0, err
	}
	b1, err := p.ReadU8()
	if err != nil {
		p.off = start
		return 0, err
	}
	return uint16(b0) | uint16(b1)<<8, nil
}

func (p *Packet) ReadI16() (int16, error) {
	v, err := p.ReadU16()
	return int16(v), err
}

func (p *Packet) ReadU32() (uint32, error) {
	start := p.off
	var v uint32
	for shift := 0; shift < 32; shift += 8 {
		b, err := p.ReadU8()
		if err != nil {
			p.off = start
			return 0, err
		}
		v |= uint32(b) << shift
	}
	return v, nil
}

func (p *Packet) ReadI32() (int32, error) {
	v, err := p.ReadU32()
	return int32(v), err
}

// ReadBytes consumes exactly n payload bytes and returns a copy.
func (p *Packet) ReadBytes(n int) ([]byte, error) {
	if n < 0 || p.off+n > len(p.data) {
		return nil, fmt.Errorf("%w: %d bytes at offset %d", ErrShortPayload, n, p.off)
	}
	out := make([]byte, n)
	copy(out, p.data[p.off:p.off+n])
	p.off += n
	return out, nil
}

// ReadFilename consumes a fixed 20-byte filename field, strips the null
// terminator and everything after it, and decodes the name as text.
func (p *Packet) ReadFilename() (string, error) {
	raw, err := p.ReadBytes(FilenameLen)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: filename", ErrInvalidText)
	}
	return string(raw), nil
}

// ReadString consumes exactly maxLen bytes and strips all trailing null
// bytes from the decoded text.
func (p *Packet) ReadString(maxLen int) (string, error) {
	raw, err := p.ReadBytes(maxLen)
	if err != nil {
		return "", err
	}
	raw = bytes.TrimRight(raw, "\x00")
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: string", ErrInvalidText)
	}
	return string(raw), nil
}
