package brick

import (
	"fmt"

	"github.com/nxtd-project/nxtd/internal/protocol"
)

// OutPort selects one or more motor output ports. The multi-port values
// are accepted in commands only; the brick never reports them back.
type OutPort uint8

const (
	OutA   OutPort = 0x00
	OutB   OutPort = 0x01
	OutC   OutPort = 0x02
	OutAB  OutPort = 0x03
	OutAC  OutPort = 0x04
	OutBC  OutPort = 0x05
	OutABC OutPort = 0x06
	// OutAll addresses every output port at once.
	OutAll OutPort = 0xFF
)

// OutPortFromByte validates a port byte read from a reply.
func OutPortFromByte(v uint8) (OutPort, error) {
	p := OutPort(v)
	switch p {
	case OutA, OutB, OutC, OutAB, OutAC, OutBC, OutABC, OutAll:
		return p, nil
	}
	return 0, fmt.Errorf("brick: invalid output port 0x%02X", v)
}

func (p OutPort) String() string {
	switch p {
	case OutA:
		return "A"
	case OutB:
		return "B"
	case OutC:
		return "C"
	case OutAB:
		return "AB"
	case OutAC:
		return "AC"
	case OutBC:
		return "BC"
	case OutABC:
		return "ABC"
	case OutAll:
		return "ALL"
	}
	return fmt.Sprintf("OutPort(0x%02X)", uint8(p))
}

// OutMode is a bitmask of motor mode flags.
type OutMode uint8

const (
	OutModeIdle      OutMode = 0x00
	OutModeOn        OutMode = 0x01
	OutModeBrake     OutMode = 0x02
	OutModeRegulated OutMode = 0x04
)

// RegulationMode selects how the firmware regulates a running motor.
type RegulationMode uint8

const (
	RegulationIdle       RegulationMode = 0x00
	RegulationMotorSpeed RegulationMode = 0x01
	RegulationMotorSync  RegulationMode = 0x02
)

// RegulationModeFromByte validates a regulation byte read from a reply.
func RegulationModeFromByte(v uint8) (RegulationMode, error) {
	m := RegulationMode(v)
	switch m {
	case RegulationIdle, RegulationMotorSpeed, RegulationMotorSync:
		return m, nil
	}
	return 0, fmt.Errorf("brick: invalid regulation mode 0x%02X", v)
}

// RunState is the motor ramp state.
type RunState uint8

const (
	RunStateIdle     RunState = 0x00
	RunStateRampUp   RunState = 0x10
	RunStateRunning  RunState = 0x20
	RunStateRampDown RunState = 0x40
)

// RunStateFromByte validates a run state byte read from a reply.
func RunStateFromByte(v uint8) (RunState, error) {
	s := RunState(v)
	switch s {
	case RunStateIdle, RunStateRampUp, RunStateRunning, RunStateRampDown:
		return s, nil
	}
	return 0, fmt.Errorf("brick: invalid run state 0x%02X", v)
}

// RunForever as a tacho limit keeps the motor running until commanded
// otherwise.
const RunForever uint32 = 0

// OutputState is the full commanded and measured state of one output
// port.
type OutputState struct {
	Port            OutPort
	Power           int8
	Mode            OutMode
	RegulationMode  RegulationMode
	TurnRatio       int8
	RunState        RunState
	TachoLimit      uint32
	TachoCount      int32
	BlockTachoCount int32
	RotationCount   int32
}

// SetOutputState commands a motor port. Power and turn ratio range over
// -100..100; a tacho limit of RunForever means no limit.
func (b *Brick) SetOutputState(port OutPort, power int8, mode OutMode, regulation RegulationMode, turnRatio int8, state RunState, tachoLimit uint32) error {
	pkt := protocol.New(protocol.OpSetOutputState)
	pkt.PushU8(uint8(port))
	pkt.PushI8(power)
	pkt.PushU8(uint8(mode))
	pkt.PushU8(uint8(regulation))
	pkt.PushI8(turnRatio)
	pkt.PushU8(uint8(state))
	pkt.PushU32(tachoLimit)
	return b.send(pkt, true)
}

// GetOutputState reads back the state of one motor port.
func (b *Brick) GetOutputState(port OutPort) (*OutputState, error) {
	pkt := protocol.New(protocol.OpGetOutputState)
	pkt.PushU8(uint8(port))
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	var st OutputState
	rawPort, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	if st.Port, err = OutPortFromByte(rawPort); err != nil {
		return nil, err
	}
	if st.Power, err = reply.ReadI8(); err != nil {
		return nil, err
	}
	rawMode, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	st.Mode = OutMode(rawMode)
	rawReg, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	if st.RegulationMode, err = RegulationModeFromByte(rawReg); err != nil {
		return nil, err
	}
	if st.TurnRatio, err = reply.ReadI8(); err != nil {
		return nil, err
	}
	rawState, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	if st.RunState, err = RunStateFromByte(rawState); err != nil {
		return nil, err
	}
	if st.TachoLimit, err = reply.ReadU32(); err != nil {
		return nil, err
	}
	if st.TachoCount, err = reply.ReadI32(); err != nil {
		return nil, err
	}
	if st.BlockTachoCount, err = reply.ReadI32(); err != nil {
		return nil, err
	}
	if st.RotationCount, err = reply.ReadI32(); err != nil {
		return nil, err
	}
	return &st, nil
}

// ResetMotorPosition zeroes a motor's position counter. With relative
// set, only the block-relative counter is reset.
func (b *Brick) ResetMotorPosition(port OutPort, relative bool) error {
	pkt := protocol.New(protocol.OpResetMotorPosition)
	pkt.PushU8(uint8(port))
	pkt.PushBool(relative)
	return b.send(pkt, true)
}
