// Package events defines the event types flowing through the daemon's
// publish-subscribe bus.
package events

import "time"

// EventType identifies a class of event on the bus.
type EventType string

const (
	// Brick lifecycle events
	EventBrickConnected    EventType = "brick_connected"
	EventBrickDisconnected EventType = "brick_disconnected"

	// Telemetry events
	EventBatterySample EventType = "battery_sample"
	EventSensorSample  EventType = "sensor_sample"
	EventProgramStatus EventType = "program_status"

	// System events
	EventShutdown EventType = "shutdown"
)

// Event is a single event on the bus.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// BrickConnectionPayload describes a connection or disconnection.
type BrickConnectionPayload struct {
	Transport string
	Name      string
	Connected bool
}

// BatterySamplePayload carries one battery voltage reading.
type BatterySamplePayload struct {
	Millivolts uint16
	SampledAt  time.Time
}

// SensorSamplePayload carries one sensor reading.
type SensorSamplePayload struct {
	Port       uint8
	SensorType uint8
	Raw        uint16
	Scaled     int16
	Valid      bool
	SampledAt  time.Time
}

// ProgramStatusPayload reports which program is running, if any.
type ProgramStatusPayload struct {
	Name    string
	Running bool
}
