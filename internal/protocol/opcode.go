// Package protocol implements the binary command protocol spoken by the
// NXT brick over USB and Bluetooth. All packets use little-endian byte
// order; frames are at most 64 bytes. The opcode and status tables are
// closed sets: any byte outside them is a parse error, never a value.
package protocol

import "fmt"

// PacketType is the first byte of every frame.
type PacketType byte

const (
	TypeDirect        PacketType = 0x00
	TypeSystem        PacketType = 0x01
	TypeReply         PacketType = 0x02
	TypeDirectNoReply PacketType = 0x80
	TypeSystemNoReply PacketType = 0x81
)

// ParsePacketType validates a raw type byte.
func ParsePacketType(b byte) (PacketType, error) {
	switch t := PacketType(b); t {
	case TypeDirect, TypeSystem, TypeReply, TypeDirectNoReply, TypeSystemNoReply:
		return t, nil
	default:
		return 0, fmt.Errorf("%w: 0x%02X", ErrInvalidPacketType, b)
	}
}

func (t PacketType) String() string {
	switch t {
	case TypeDirect:
		return "direct"
	case TypeSystem:
		return "system"
	case TypeReply:
		return "reply"
	case TypeDirectNoReply:
		return "direct-no-reply"
	case TypeSystemNoReply:
		return "system-no-reply"
	default:
		return fmt.Sprintf("type(0x%02X)", byte(t))
	}
}

// Opcode is the second byte of every frame.
// Direct commands (motor/sensor/sound/program control) have bit 0x80
// clear; system calls (filesystem, modules, device info) have it set.
// Command table: firmware c_cmd.c / c_loader.c.
type Opcode byte

// Direct commands.
const (
	OpStartProgram          Opcode = 0x00
	OpStopProgram           Opcode = 0x01
	OpPlaySoundFile         Opcode = 0x02
	OpPlayTone              Opcode = 0x03
	OpSetOutputState        Opcode = 0x04
	OpSetInputMode          Opcode = 0x05
	OpGetOutputState        Opcode = 0x06
	OpGetInputValues        Opcode = 0x07
	OpResetInputScaledValue Opcode = 0x08
	OpMessageWrite          Opcode = 0x09
	OpResetMotorPosition    Opcode = 0x0A
	OpGetBatteryLevel       Opcode = 0x0B
	OpStopSoundPlayback     Opcode = 0x0C
	OpKeepAlive             Opcode = 0x0D
	OpLsGetStatus           Opcode = 0x0E
	OpLsWrite               Opcode = 0x0F
	OpLsRead                Opcode = 0x10
	OpGetCurrentProgramName Opcode = 0x11
	OpGetButtonState        Opcode = 0x12
	OpMessageRead           Opcode = 0x13
	OpDatalogRead           Opcode = 0x19
	OpDatalogSetTimes       Opcode = 0x1A
	OpBtGetContactCount     Opcode = 0x1B
	OpBtGetContactName      Opcode = 0x1C
	OpBtGetConnCount        Opcode = 0x1D
	OpBtGetConnName         Opcode = 0x1E
	OpSetProperty           Opcode = 0x1F
	OpGetProperty           Opcode = 0x20
	OpUpdateResetCount      Opcode = 0x21
)

// System calls.
const (
	OpSysOpenRead          Opcode = 0x80
	OpSysOpenWrite         Opcode = 0x81
	OpSysRead              Opcode = 0x82
	OpSysWrite             Opcode = 0x83
	OpSysClose             Opcode = 0x84
	OpSysDelete            Opcode = 0x85
	OpSysFindFirst         Opcode = 0x86
	OpSysFindNext          Opcode = 0x87
	OpSysVersions          Opcode = 0x88
	OpSysOpenWriteLinear   Opcode = 0x89
	OpSysOpenReadLinear    Opcode = 0x8A
	OpSysOpenWriteData     Opcode = 0x8B
	OpSysOpenAppendData    Opcode = 0x8C
	OpSysCropDataFile      Opcode = 0x8D
	OpSysFindFirstModule   Opcode = 0x90
	OpSysFindNextModule    Opcode = 0x91
	OpSysCloseModuleHandle Opcode = 0x92
	OpSysIOMapRead         Opcode = 0x94
	OpSysIOMapWrite        Opcode = 0x95
	OpSysBootCmd           Opcode = 0x97
	OpSysSetBrickName      Opcode = 0x98
	OpSysBtGetAddr         Opcode = 0x9A
	OpSysDeviceInfo        Opcode = 0x9B
	OpSysDeleteUserFlash   Opcode = 0xA0
	OpSysPollCmdLen        Opcode = 0xA1
	OpSysPollCmd           Opcode = 0xA2
	OpSysRenameFile        Opcode = 0xA3
	OpSysBtFactoryReset    Opcode = 0xA4
	OpSysResizeDataFile    Opcode = 0xD0
	OpSysSeekFromStart     Opcode = 0xD1
	OpSysSeekFromCurrent   Opcode = 0xD2
	OpSysSeekFromEnd       Opcode = 0xD3
)

// opcodeNames doubles as the closed-set membership table.
var opcodeNames = map[Opcode]string{
	OpStartProgram:          "StartProgram",
	OpStopProgram:           "StopProgram",
	OpPlaySoundFile:         "PlaySoundFile",
	OpPlayTone:              "PlayTone",
	OpSetOutputState:        "SetOutputState",
	OpSetInputMode:          "SetInputMode",
	OpGetOutputState:        "GetOutputState",
	OpGetInputValues:        "GetInputValues",
	OpResetInputScaledValue: "ResetInputScaledValue",
	OpMessageWrite:          "MessageWrite",
	OpResetMotorPosition:    "ResetMotorPosition",
	OpGetBatteryLevel:       "GetBatteryLevel",
	OpStopSoundPlayback:     "StopSoundPlayback",
	OpKeepAlive:             "KeepAlive",
	OpLsGetStatus:           "LsGetStatus",
	OpLsWrite:               "LsWrite",
	OpLsRead:                "LsRead",
	OpGetCurrentProgramName: "GetCurrentProgramName",
	OpGetButtonState:        "GetButtonState",
	OpMessageRead:           "MessageRead",
	OpDatalogRead:           "DatalogRead",
	OpDatalogSetTimes:       "DatalogSetTimes",
	OpBtGetContactCount:     "BtGetContactCount",
	OpBtGetContactName:      "BtGetContactName",
	OpBtGetConnCount:        "BtGetConnCount",
	OpBtGetConnName:         "BtGetConnName",
	OpSetProperty:           "SetProperty",
	OpGetProperty:           "GetProperty",
	OpUpdateResetCount:      "UpdateResetCount",
	OpSysOpenRead:           "SysOpenRead",
	OpSysOpenWrite:          "SysOpenWrite",
	OpSysRead:               "SysRead",
	OpSysWrite:              "SysWrite",
	OpSysClose:              "SysClose",
	OpSysDelete:             "SysDelete",
	OpSysFindFirst:          "SysFindFirst",
	OpSysFindNext:           "SysFindNext",
	OpSysVersions:           "SysVersions",
	OpSysOpenWriteLinear:    "SysOpenWriteLinear",
	OpSysOpenReadLinear:     "SysOpenReadLinear",
	OpSysOpenWriteData:      "SysOpenWriteData",
	OpSysOpenAppendData:     "SysOpenAppendData",
	OpSysCropDataFile:       "SysCropDataFile",
	OpSysFindFirstModule:    "SysFindFirstModule",
	OpSysFindNextModule:     "SysFindNextModule",
	OpSysCloseModuleHandle:  "SysCloseModuleHandle",
	OpSysIOMapRead:          "SysIOMapRead",
	OpSysIOMapWrite:         "SysIOMapWrite",
	OpSysBootCmd:            "SysBootCmd",
	OpSysSetBrickName:       "SysSetBrickName",
	OpSysBtGetAddr:          "SysBtGetAddr",
	OpSysDeviceInfo:         "SysDeviceInfo",
	OpSysDeleteUserFlash:    "SysDeleteUserFlash",
	OpSysPollCmdLen:         "SysPollCmdLen",
	OpSysPollCmd:            "SysPollCmd",
	OpSysRenameFile:         "SysRenameFile",
	OpSysBtFactoryReset:     "SysBtFactoryReset",
	OpSysResizeDataFile:     "SysResizeDataFile",
	OpSysSeekFromStart:      "SysSeekFromStart",
	OpSysSeekFromCurrent:    "SysSeekFromCurrent",
	OpSysSeekFromEnd:        "SysSeekFromEnd",
}

// ParseOpcode validates a raw opcode byte against the closed set.
func ParseOpcode(b byte) (Opcode, error) {
	op := Opcode(b)
	if _, ok := opcodeNames[op]; !ok {
		return 0, fmt.Errorf("%w: 0x%02X", ErrInvalidOpcode, b)
	}
	return op, nil
}

// IsSystem reports whether the opcode is a system call rather than a
// direct command. This is a bit test, not a table lookup: the 0x80 bit
// partitions the entire command space.
func (op Opcode) IsSystem() bool {
	return op&0x80 != 0
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(0x%02X)", byte(op))
}

// Opcodes returns every member of the closed opcode set.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeNames))
	for op := range opcodeNames {
		ops = append(ops, op)
	}
	return ops
}
