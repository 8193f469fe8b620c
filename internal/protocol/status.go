package protocol

import "fmt"

// Status is the device-reported status byte carried as the first payload
// byte of every reply. 0x00 is success; every other recognized value
// names a specific failure. Status table: firmware c_comm.h / c_loader.h.
type Status byte

const (
	StatusSuccess             Status = 0x00
	StatusInProgress          Status = 0x20
	StatusQueueEmpty          Status = 0x40
	StatusNoMoreHandles       Status = 0x81
	StatusNoSpace             Status = 0x82
	StatusNoMoreFiles         Status = 0x83
	StatusEOFExpected         Status = 0x84
	StatusEOF                 Status = 0x85
	StatusNotALinearFile      Status = 0x86
	StatusFileNotFound        Status = 0x87
	StatusHandleAlreadyClosed Status = 0x88
	StatusNoLinearSpace       Status = 0x89
	StatusUndefined           Status = 0x8A
	StatusFileBusy            Status = 0x8B
	StatusNoWriteBuffers      Status = 0x8C
	StatusAppendNotPossible   Status = 0x8D
	StatusFileIsFull          Status = 0x8E
	StatusFileExists          Status = 0x8F
	StatusModuleNotFound      Status = 0x90
	StatusOutOfBounds         Status = 0x91
	StatusIllegalName         Status = 0x92
	StatusIllegalHandle       Status = 0x93
	StatusRequestFailed       Status = 0xBD
	StatusUnknownCommand      Status = 0xBE
	StatusInsanePacket        Status = 0xBF
	StatusValueOutOfRange     Status = 0xC0
	StatusBusError            Status = 0xDD
	StatusBufferFull          Status = 0xDE
	StatusInvalidChannel      Status = 0xDF
	StatusUnconfiguredChannel Status = 0xE0
	StatusNoActiveProgram     Status = 0xEC
	StatusIllegalSize         Status = 0xED
	StatusIllegalQueueID      Status = 0xEE
	StatusInvalidField        Status = 0xEF
	StatusBadInputOrOutput    Status = 0xF0
	StatusInsufficientMemory  Status = 0xFB
	StatusBadArguments        Status = 0xFF
)

var statusMessages = map[Status]string{
	StatusSuccess:             "success",
	StatusInProgress:          "pending communication transaction in progress",
	StatusQueueEmpty:          "specified mailbox queue is empty",
	StatusNoMoreHandles:       "no more handles",
	StatusNoSpace:             "no space",
	StatusNoMoreFiles:         "no more files",
	StatusEOFExpected:         "end of file expected",
	StatusEOF:                 "end of file",
	StatusNotALinearFile:      "not a linear file",
	StatusFileNotFound:        "file not found",
	StatusHandleAlreadyClosed: "handle already closed",
	StatusNoLinearSpace:       "no linear space",
	StatusUndefined:           "undefined error",
	StatusFileBusy:            "file is busy",
	StatusNoWriteBuffers:      "no write buffers",
	StatusAppendNotPossible:   "append not possible",
	StatusFileIsFull:          "file is full",
	StatusFileExists:          "file exists",
	StatusModuleNotFound:      "module not found",
	StatusOutOfBounds:         "out of bounds",
	StatusIllegalName:         "illegal file name",
	StatusIllegalHandle:       "illegal handle",
	StatusRequestFailed:       "request failed (i.e. specified file not found)",
	StatusUnknownCommand:      "unknown command opcode",
	StatusInsanePacket:        "insane packet",
	StatusValueOutOfRange:     "data contains out-of-range values",
	StatusBusError:            "communication bus error",
	StatusBufferFull:          "no free memory in communication buffer",
	StatusInvalidChannel:      "specified channel/connection is not valid",
	StatusUnconfiguredChannel: "specified channel/connection not configured or busy",
	StatusNoActiveProgram:     "no active program",
	StatusIllegalSize:         "illegal size specified",
	StatusIllegalQueueID:      "illegal mailbox queue ID specified",
	StatusInvalidField:        "attempted to access invalid field of a structure",
	StatusBadInputOrOutput:    "bad input or output specified",
	StatusInsufficientMemory:  "insufficient memory available",
	StatusBadArguments:        "bad arguments",
}

// ParseStatus validates a raw status byte against the closed set. An
// unassigned byte is a parse failure (ErrUnknownStatus), deliberately
// distinct from every named device condition.
func ParseStatus(b byte) (Status, error) {
	s := Status(b)
	if _, ok := statusMessages[s]; !ok {
		return 0, fmt.Errorf("%w: 0x%02X", ErrUnknownStatus, b)
	}
	return s, nil
}

func (s Status) String() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("status(0x%02X)", byte(s))
}

// Err maps the status to an error: nil for success, a *DeviceError for
// every named failure.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return &DeviceError{Code: s}
}

// DeviceError is a failure reported by the brick itself, as opposed to a
// transport or parse failure on the host side.
type DeviceError struct {
	Code Status
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error 0x%02X: %s", byte(e.Code), e.Code)
}
