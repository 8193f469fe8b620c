package transport

import (
	"bytes"
	"errors"
	"testing"
)

// fakeChannel is an in-memory byte stream: Recv consumes from in, Send
// appends to out.
type fakeChannel struct {
	in     bytes.Buffer
	out    bytes.Buffer
	closed bool
}

func (f *fakeChannel) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakeChannel) Write(p []byte) (int, error) { return f.out.Write(p) }
func (f *fakeChannel) Close() error                { f.closed = true; return nil }

func TestStreamSendAddsLengthPrefix(t *testing.T) {
	ch := &fakeChannel{}
	s := NewStream(ch)

	payload := []byte{0x00, 0x0B}
	n, err := s.Send(payload)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("n = %d, want %d", n, len(payload))
	}

	want := []byte{0x02, 0x00, 0x00, 0x0B}
	if !bytes.Equal(ch.out.Bytes(), want) {
		t.Fatalf("wire bytes = %#v, want %#v", ch.out.Bytes(), want)
	}
}

func TestStreamRecvReadsExactFrame(t *testing.T) {
	ch := &fakeChannel{}
	// Two frames back to back; Recv must split at the prefixes.
	ch.in.Write([]byte{0x03, 0x00, 0xAA, 0xBB, 0xCC, 0x01, 0x00, 0xDD})

	s := NewStream(ch)
	var buf [64]byte

	first, err := s.Recv(buf[:])
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !bytes.Equal(first, []byte{0xAA, 0xBB, 0xCC}) {
		t.Fatalf("first frame = %#v", first)
	}

	second, err := s.Recv(buf[:])
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !bytes.Equal(second, []byte{0xDD}) {
		t.Fatalf("second frame = %#v", second)
	}
}

func TestStreamRecvOversizeDeclaredLength(t *testing.T) {
	ch := &fakeChannel{}
	ch.in.Write([]byte{0xFF, 0x00}) // declares 255 bytes

	s := NewStream(ch)
	var buf [64]byte
	if _, err := s.Recv(buf[:]); !errors.Is(err, ErrOversizeFrame) {
		t.Fatalf("expected ErrOversizeFrame, got %v", err)
	}
}

func TestStreamRecvTruncatedPayload(t *testing.T) {
	ch := &fakeChannel{}
	ch.in.Write([]byte{0x04, 0x00, 0xAA}) // declares 4, delivers 1

	s := NewStream(ch)
	var buf [64]byte
	if _, err := s.Recv(buf[:]); err == nil {
		t.Fatal("expected error on truncated payload")
	}
}

func TestStreamClosed(t *testing.T) {
	ch := &fakeChannel{}
	s := NewStream(ch)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ch.closed {
		t.Fatal("underlying channel not closed")
	}
	if _, err := s.Send([]byte{0x00}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	var buf [8]byte
	if _, err := s.Recv(buf[:]); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

