package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// Wire vectors captured from a real brick session.
var (
	battLevelFrame = []byte{0x00, 0x0B}
	brickNameFrame = []byte{
		0x01, 0x98,
		't', 'e', 's', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

func TestIsSystemMatchesHighBit(t *testing.T) {
	for _, op := range Opcodes() {
		want := byte(op)&0x80 != 0
		if op.IsSystem() != want {
			t.Errorf("opcode %s (0x%02X): IsSystem = %v, want %v", op, byte(op), op.IsSystem(), want)
		}
	}
	if Opcode(0x7F).IsSystem() {
		t.Error("0x7F must not classify as system")
	}
	if !Opcode(0x80).IsSystem() {
		t.Error("0x80 must classify as system")
	}
}

func TestParseOpcodeRejectsUnknown(t *testing.T) {
	if _, err := ParseOpcode(0x22); !errors.Is(err, ErrInvalidOpcode) {
		t.Fatalf("expected ErrInvalidOpcode, got %v", err)
	}
	if _, err := ParseOpcode(byte(OpGetBatteryLevel)); err != nil {
		t.Fatalf("known opcode rejected: %v", err)
	}
}

func TestParsePacketType(t *testing.T) {
	for _, b := range []byte{0x00, 0x01, 0x02, 0x80, 0x81} {
		if _, err := ParsePacketType(b); err != nil {
			t.Errorf("type 0x%02X rejected: %v", b, err)
		}
	}
	if _, err := ParsePacketType(0x03); !errors.Is(err, ErrInvalidPacketType) {
		t.Fatalf("expected ErrInvalidPacketType, got %v", err)
	}
}

func TestPushFilename(t *testing.T) {
	pkt := New(OpStartProgram)
	if err := pkt.PushFilename("a_file"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if pkt.Len() != FilenameLen {
		t.Fatalf("payload length = %d, want %d", pkt.Len(), FilenameLen)
	}
	want := append([]byte("a_file"), make([]byte, 14)...)
	if !bytes.Equal(pkt.data, want) {
		t.Fatalf("payload = %q, want %q", pkt.data, want)
	}

	if err := pkt.PushFilename("01234abcde01234abcde"); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("20-char name: expected ErrNameTooLong, got %v", err)
	}
	if err := pkt.PushFilename("01234abcde01234abcde0"); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("21-char name: expected ErrNameTooLong, got %v", err)
	}
	if err := pkt.PushFilename("datei_ä"); !errors.Is(err, ErrNameNotASCII) {
		t.Fatalf("non-ascii name: expected ErrNameNotASCII, got %v", err)
	}
}

func TestFilenameRoundTrip(t *testing.T) {
	pkt := New(OpStartProgram)
	if err := pkt.PushFilename("demo.rxe"); err != nil {
		t.Fatal(err)
	}
	in := &Packet{Type: TypeReply, Opcode: OpStartProgram, data: pkt.data}
	name, err := in.ReadFilename()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if name != "demo.rxe" {
		t.Fatalf("name = %q", name)
	}
}

func TestStatusDecode(t *testing.T) {
	s, err := ParseStatus(0x00)
	if err != nil || s != StatusSuccess {
		t.Fatalf("0x00: got %v, %v", s, err)
	}
	if s.Err() != nil {
		t.Fatal("success status must map to nil error")
	}

	s, err = ParseStatus(0x87)
	if err != nil || s != StatusFileNotFound {
		t.Fatalf("0x87: got %v, %v", s, err)
	}
	var devErr *DeviceError
	if err := s.Err(); !errors.As(err, &devErr) || devErr.Code != StatusFileNotFound {
		t.Fatalf("0x87: expected DeviceError{FileNotFound}, got %v", err)
	}

	// 0x99 is unassigned: a parse failure, never a named device error.
	_, err = ParseStatus(0x99)
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("0x99: expected ErrUnknownStatus, got %v", err)
	}
	if errors.As(err, &devErr) {
		t.Fatal("unknown status must not classify as DeviceError")
	}
}

func TestBatteryLevelRequestSerializes(t *testing.T) {
	pkt := New(OpGetBatteryLevel)
	var buf [MaxFrameSize]byte
	frame, err := pkt.Serialize(buf[:])
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !bytes.Equal(frame, battLevelFrame) {
		t.Fatalf("frame = %#v, want %#v", frame, battLevelFrame)
	}
}

func TestBatteryLevelReplyDecodes(t *testing.T) {
	reply, err := Parse([]byte{0x02, 0x0B, 0x00, 0x0B, 0x00})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if reply.Type != TypeReply || reply.Opcode != OpGetBatteryLevel {
		t.Fatalf("header = %v %v", reply.Type, reply.Opcode)
	}
	if err := reply.CheckStatus(); err != nil {
		t.Fatalf("status: %v", err)
	}
	mv, err := reply.ReadU16()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mv != 11 {
		t.Fatalf("battery level = %d, want 11", mv)
	}
}

func TestBrickNameRoundTrip(t *testing.T) {
	pkt := New(OpSysSetBrickName)
	if err := pkt.PushString("test", 15); err != nil {
		t.Fatalf("push: %v", err)
	}
	var buf [MaxFrameSize]byte
	frame, err := pkt.Serialize(buf[:])
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !bytes.Equal(frame, brickNameFrame) {
		t.Fatalf("frame = %#v, want %#v", frame, brickNameFrame)
	}

	in, err := Parse(frame)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	name, err := in.ReadString(15)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if name != "test" {
		t.Fatalf("name = %q, want %q", name, "test")
	}
}

func TestPushStringBounds(t *testing.T) {
	pkt := New(OpSysSetBrickName)
	if err := pkt.PushString("exactly14chars", 15); err != nil {
		t.Fatalf("14 chars into 15: %v", err)
	}
	if err := pkt.PushString("exactly15chars!", 15); !errors.Is(err, ErrStringTooLong) {
		t.Fatalf("expected ErrStringTooLong, got %v", err)
	}
}

func TestMultiByteReadRewindsOnShortPayload(t *testing.T) {
	p := &Packet{Type: TypeReply, Opcode: OpKeepAlive, data: []byte{0xAA, 0xBB, 0xCC}}

	if _, err := p.ReadU32(); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
	// Failed read must not leave bytes half-consumed.
	if p.off != 0 {
		t.Fatalf("cursor = %d after failed ReadU32, want 0", p.off)
	}

	if _, err := p.ReadU16(); err != nil {
		t.Fatalf("ReadU16 after rewind: %v", err)
	}
	if _, err := p.ReadU16(); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
	if p.off != 2 {
		t.Fatalf("cursor = %d after failed ReadU16, want 2", p.off)
	}
}

func TestReadPastEnd(t *testing.T) {
	p := &Packet{Type: TypeReply, Opcode: OpKeepAlive}
	if _, err := p.ReadU8(); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
	if _, err := p.ReadBytes(1); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}

func TestSerializeOverflow(t *testing.T) {
	pkt := New(OpSysWrite)
	pkt.PushBytes(make([]byte, MaxFrameSize-1))
	var buf [MaxFrameSize]byte
	if _, err := pkt.Serialize(buf[:]); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestNoReplyTypes(t *testing.T) {
	if pkt := NewNoReply(OpPlayTone); pkt.Type != TypeDirectNoReply {
		t.Fatalf("direct no-reply type = %v", pkt.Type)
	}
	if pkt := NewNoReply(OpSysDelete); pkt.Type != TypeSystemNoReply {
		t.Fatalf("system no-reply type = %v", pkt.Type)
	}
	if pkt := New(OpSysDelete); pkt.Type != TypeSystem {
		t.Fatalf("system type = %v", pkt.Type)
	}
}
