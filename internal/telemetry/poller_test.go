package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/nxtd-project/nxtd/internal/brick"
	"github.com/nxtd-project/nxtd/internal/config"
	"github.com/nxtd-project/nxtd/internal/events"
	"github.com/nxtd-project/nxtd/internal/protocol"
)

type fakeReader struct {
	battery    uint16
	batteryErr error
	program    string
	programErr error
	sensors    map[brick.InPort]*brick.InputValues
}

func (f *fakeReader) GetBatteryLevel() (uint16, error) {
	return f.battery, f.batteryErr
}

func (f *fakeReader) GetInputValues(port brick.InPort) (*brick.InputValues, error) {
	v, ok := f.sensors[port]
	if !ok {
		return nil, &protocol.DeviceError{Code: protocol.StatusBadArguments}
	}
	return v, nil
}

func (f *fakeReader) GetCurrentProgramName() (string, error) {
	return f.program, f.programErr
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) record(ctx context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) byType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func pollOnce(t *testing.T, cfg *config.Config, reader *fakeReader) *recorder {
	t.Helper()
	bus := events.NewEventBus()
	rec := &recorder{}
	for _, typ := range []events.EventType{
		events.EventBatterySample, events.EventSensorSample, events.EventProgramStatus,
	} {
		bus.Subscribe(typ, "recorder", rec.record)
	}

	p := NewPoller(cfg, bus, reader)
	p.poll(context.Background())
	bus.Stop() // drain in-flight handlers
	return rec
}

func TestPollEmitsBatteryAndSensors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Daemon.Telemetry.SensorPorts = []int{1}
	reader := &fakeReader{
		battery: 8100,
		program: "line_follow.rxe",
		sensors: map[brick.InPort]*brick.InputValues{
			brick.In1: {Port: brick.In1, Valid: true, Raw: 512, Scaled: 1},
		},
	}

	rec := pollOnce(t, cfg, reader)

	batt := rec.byType(events.EventBatterySample)
	if len(batt) != 1 {
		t.Fatalf("battery events = %d, want 1", len(batt))
	}
	if got := batt[0].Payload.(events.BatterySamplePayload).Millivolts; got != 8100 {
		t.Errorf("battery = %d, want 8100", got)
	}

	sensors := rec.byType(events.EventSensorSample)
	if len(sensors) != 1 {
		t.Fatalf("sensor events = %d, want 1", len(sensors))
	}

	progs := rec.byType(events.EventProgramStatus)
	if len(progs) != 1 || !progs[0].Payload.(events.ProgramStatusPayload).Running {
		t.Errorf("program status = %+v", progs)
	}
}

func TestPollTreatsNoActiveProgramAsIdle(t *testing.T) {
	cfg := config.DefaultConfig()
	reader := &fakeReader{
		battery:    7000,
		programErr: &protocol.DeviceError{Code: protocol.StatusNoActiveProgram},
	}

	rec := pollOnce(t, cfg, reader)

	progs := rec.byType(events.EventProgramStatus)
	if len(progs) != 1 {
		t.Fatalf("program events = %d, want 1", len(progs))
	}
	if progs[0].Payload.(events.ProgramStatusPayload).Running {
		t.Error("idle brick reported as running")
	}
}

func TestPollContinuesPastFailedReads(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Daemon.Telemetry.SensorPorts = []int{2}
	reader := &fakeReader{
		batteryErr: &protocol.DeviceError{Code: protocol.StatusBusError},
		program:    "demo.rxe",
	}

	rec := pollOnce(t, cfg, reader)

	if n := len(rec.byType(events.EventBatterySample)); n != 0 {
		t.Errorf("battery events = %d, want 0", n)
	}
	if n := len(rec.byType(events.EventProgramStatus)); n != 1 {
		t.Errorf("program events = %d, want 1", n)
	}
}
