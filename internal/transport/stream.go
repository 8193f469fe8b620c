package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nxtd-project/nxtd/internal/util"
)

// Stream adapts a continuous byte channel (RFCOMM socket, serial tty) to
// message semantics. The channel has no inherent boundaries, so every
// message is framed with a 2-byte little-endian length prefix. The
// prefix is this client's addition for stream links; it is not part of
// the brick's native packet format.
type Stream struct {
	mu     sync.Mutex
	rw     io.ReadWriteCloser
	closed bool
	logger zerolog.Logger
}

// NewStream wraps an established byte channel.
func NewStream(rw io.ReadWriteCloser) *Stream {
	return &Stream{
		rw:     rw,
		logger: util.ComponentLogger("stream"),
	}
}

func (s *Stream) Send(data []byte) (int, error) {
	if len(data) > int(^uint16(0)) {
		return 0, fmt.Errorf("%w: %d bytes", ErrOversizeFrame, len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	var prefix [2]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(data)))
	if _, err := s.rw.Write(prefix[:]); err != nil {
		return 0, fmt.Errorf("stream write prefix: %w", err)
	}
	n, err := s.rw.Write(data)
	if err != nil {
		return n, fmt.Errorf("stream write: %w", err)
	}
	if n != len(data) {
		return n, ErrShortWrite
	}
	return n, nil
}

func (s *Stream) Recv(buf []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var prefix [2]byte
	if _, err := io.ReadFull(s.rw, prefix[:]); err != nil {
		return nil, fmt.Errorf("stream read prefix: %w", err)
	}
	n := int(binary.LittleEndian.Uint16(prefix[:]))
	if n > len(buf) {
		// A declared length beyond the caller's buffer is a framing
		// fault; consuming part of the message would desynchronize the
		// stream, so fail outright.
		return nil, fmt.Errorf("%w: declared %d, buffer %d", ErrOversizeFrame, n, len(buf))
	}
	if _, err := io.ReadFull(s.rw, buf[:n]); err != nil {
		return nil, fmt.Errorf("stream read payload: %w", err)
	}
	return buf[:n], nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug().Msg("stream transport closed")
	return s.rw.Close()
}
