package brick

import (
	"fmt"

	"github.com/nxtd-project/nxtd/internal/protocol"
)

// InPort selects a sensor input port.
type InPort uint8

const (
	In1 InPort = 0x00
	In2 InPort = 0x01
	In3 InPort = 0x02
	In4 InPort = 0x03
)

// InPortFromByte validates a port byte read from a reply.
func InPortFromByte(v uint8) (InPort, error) {
	p := InPort(v)
	switch p {
	case In1, In2, In3, In4:
		return p, nil
	}
	return 0, fmt.Errorf("brick: invalid input port 0x%02X", v)
}

func (p InPort) String() string {
	switch p {
	case In1, In2, In3, In4:
		return fmt.Sprintf("S%d", p+1)
	}
	return fmt.Sprintf("InPort(0x%02X)", uint8(p))
}

// SensorType tells the firmware what hardware is plugged into a port.
type SensorType uint8

const (
	SensorNone          SensorType = 0x00
	SensorSwitch        SensorType = 0x01
	SensorTemperature   SensorType = 0x02
	SensorReflection    SensorType = 0x03
	SensorAngle         SensorType = 0x04
	SensorLightActive   SensorType = 0x05
	SensorLightInactive SensorType = 0x06
	SensorSoundDB       SensorType = 0x07
	SensorSoundDBA      SensorType = 0x08
	SensorCustom        SensorType = 0x09
	SensorLowSpeed      SensorType = 0x0A
	SensorLowSpeed9V    SensorType = 0x0B
	SensorHighSpeed     SensorType = 0x0C
	SensorColorFull     SensorType = 0x0D
	SensorColorRed      SensorType = 0x0E
	SensorColorGreen    SensorType = 0x0F
	SensorColorBlue     SensorType = 0x10
	SensorColorNone     SensorType = 0x11
	SensorColorExit     SensorType = 0x12
)

// SensorTypeFromByte validates a sensor type byte read from a reply.
func SensorTypeFromByte(v uint8) (SensorType, error) {
	if v > uint8(SensorColorExit) {
		return 0, fmt.Errorf("brick: invalid sensor type 0x%02X", v)
	}
	return SensorType(v), nil
}

// SensorMode tells the firmware how to interpret raw readings.
type SensorMode uint8

const (
	ModeRaw        SensorMode = 0x00
	ModeBool       SensorMode = 0x20
	ModeEdge       SensorMode = 0x40
	ModePulse      SensorMode = 0x60
	ModePercent    SensorMode = 0x80
	ModeCelsius    SensorMode = 0xA0
	ModeFahrenheit SensorMode = 0xC0
	ModeRotation   SensorMode = 0xE0
)

// SensorModeFromByte validates a sensor mode byte read from a reply.
func SensorModeFromByte(v uint8) (SensorMode, error) {
	m := SensorMode(v)
	switch m {
	case ModeRaw, ModeBool, ModeEdge, ModePulse, ModePercent, ModeCelsius, ModeFahrenheit, ModeRotation:
		return m, nil
	}
	return 0, fmt.Errorf("brick: invalid sensor mode 0x%02X", v)
}

// InputValues is one full sensor reading. Raw is the ADC value;
// Scaled is the mode-dependent interpretation most callers want.
type InputValues struct {
	Port            InPort
	Valid           bool
	Calibrated      bool
	SensorType      SensorType
	SensorMode      SensorMode
	Raw             uint16
	Normalized      uint16
	Scaled          int16
	CalibratedValue int16
}

// String renders the reading according to its mode. An invalid reading
// (sampled mid-conversion) prints as "...".
func (v InputValues) String() string {
	if !v.Valid {
		return "..."
	}
	switch v.SensorMode {
	case ModeRaw:
		return fmt.Sprintf("%d", v.Raw)
	case ModeBool:
		return fmt.Sprintf("%t", v.Scaled != 0)
	case ModePercent:
		return fmt.Sprintf("%d%%", v.Scaled)
	case ModeCelsius:
		return fmt.Sprintf("%d C", v.Scaled)
	case ModeFahrenheit:
		return fmt.Sprintf("%d F", v.Scaled)
	case ModeRotation:
		return fmt.Sprintf("%d ticks", v.Scaled)
	default:
		return fmt.Sprintf("%d", v.Scaled)
	}
}

// SetInputMode configures a sensor port's type and interpretation mode.
func (b *Brick) SetInputMode(port InPort, typ SensorType, mode SensorMode) error {
	pkt := protocol.New(protocol.OpSetInputMode)
	pkt.PushU8(uint8(port))
	pkt.PushU8(uint8(typ))
	pkt.PushU8(uint8(mode))
	return b.send(pkt, true)
}

// GetInputValues reads the current values of one sensor port.
func (b *Brick) GetInputValues(port InPort) (*InputValues, error) {
	pkt := protocol.New(protocol.OpGetInputValues)
	pkt.PushU8(uint8(port))
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	var vals InputValues
	rawPort, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	if vals.Port, err = InPortFromByte(rawPort); err != nil {
		return nil, err
	}
	if vals.Valid, err = reply.ReadBool(); err != nil {
		return nil, err
	}
	if vals.Calibrated, err = reply.ReadBool(); err != nil {
		return nil, err
	}
	rawType, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	if vals.SensorType, err = SensorTypeFromByte(rawType); err != nil {
		return nil, err
	}
	rawMode, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	if vals.SensorMode, err = SensorModeFromByte(rawMode); err != nil {
		return nil, err
	}
	if vals.Raw, err = reply.ReadU16(); err != nil {
		return nil, err
	}
	if vals.Normalized, err = reply.ReadU16(); err != nil {
		return nil, err
	}
	if vals.Scaled, err = reply.ReadI16(); err != nil {
		return nil, err
	}
	if vals.CalibratedValue, err = reply.ReadI16(); err != nil {
		return nil, err
	}
	return &vals, nil
}

// ResetInputScaledValue zeroes the accumulated scaled value of a port,
// used with the edge, pulse and rotation modes.
func (b *Brick) ResetInputScaledValue(port InPort) error {
	pkt := protocol.New(protocol.OpResetInputScaledValue)
	pkt.PushU8(uint8(port))
	return b.send(pkt, true)
}

// LsGetStatus returns the number of bytes ready to read from a
// low-speed (I2C) device on the port.
func (b *Brick) LsGetStatus(port InPort) (uint8, error) {
	pkt := protocol.New(protocol.OpLsGetStatus)
	pkt.PushU8(uint8(port))
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return 0, err
	}
	if err := reply.CheckStatus(); err != nil {
		return 0, err
	}
	return reply.ReadU8()
}

// LsWrite sends a raw transaction to a low-speed (I2C) device and tells
// the firmware how many reply bytes to expect.
func (b *Brick) LsWrite(port InPort, txData []byte, rxBytes uint8) error {
	if len(txData) > 0xFF {
		return fmt.Errorf("brick: low-speed payload too long (%d bytes)", len(txData))
	}
	pkt := protocol.New(protocol.OpLsWrite)
	pkt.PushU8(uint8(port))
	pkt.PushU8(uint8(len(txData)))
	pkt.PushU8(rxBytes)
	pkt.PushBytes(txData)
	return b.send(pkt, true)
}

// LsRead fetches the pending reply bytes from a low-speed (I2C) device.
func (b *Brick) LsRead(port InPort) ([]byte, error) {
	pkt := protocol.New(protocol.OpLsRead)
	pkt.PushU8(uint8(port))
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	n, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	return reply.ReadBytes(int(n))
}
