package protocol

import "errors"

var (
	ErrInvalidPacketType = errors.New("protocol: invalid packet type")
	ErrInvalidOpcode     = errors.New("protocol: invalid opcode")
	ErrUnknownStatus     = errors.New("protocol: unrecognized status byte")
	ErrShortPayload      = errors.New("protocol: insufficient payload data")
	ErrFrameTooLarge     = errors.New("protocol: frame exceeds maximum size")
	ErrNameTooLong       = errors.New("protocol: filename too long")
	ErrNameNotASCII      = errors.New("protocol: filename must be ascii")
	ErrStringTooLong     = errors.New("protocol: string too long")
	ErrInvalidText       = errors.New("protocol: invalid text encoding")
)
