package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEmitSyncDeliversToAllHandlers(t *testing.T) {
	bus := NewEventBus()
	var calls atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		bus.Subscribe(EventBatterySample, name, func(ctx context.Context, ev Event) error {
			calls.Add(1)
			return nil
		})
	}

	err := bus.EmitSync(context.Background(), Event{
		Type:    EventBatterySample,
		Source:  "test",
		Payload: BatterySamplePayload{Millivolts: 7900, SampledAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("EmitSync: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("handlers called %d times, want 3", calls.Load())
	}
}

func TestEmitSyncReturnsHandlerError(t *testing.T) {
	bus := NewEventBus()
	sentinel := errors.New("handler failed")
	bus.Subscribe(EventShutdown, "failing", func(ctx context.Context, ev Event) error {
		return sentinel
	})

	err := bus.EmitSync(context.Background(), Event{Type: EventShutdown})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
}

func TestUnsubscribeRemovesHandler(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe(EventSensorSample, "gone", func(ctx context.Context, ev Event) error { return nil })
	bus.Subscribe(EventSensorSample, "stays", func(ctx context.Context, ev Event) error { return nil })

	bus.Unsubscribe(EventSensorSample, "gone")
	if n := bus.HandlerCount(EventSensorSample); n != 1 {
		t.Errorf("handler count = %d, want 1", n)
	}
}

func TestStopDropsSubsequentEmits(t *testing.T) {
	bus := NewEventBus()
	var calls atomic.Int32
	bus.Subscribe(EventProgramStatus, "counter", func(ctx context.Context, ev Event) error {
		calls.Add(1)
		return nil
	})

	bus.Stop()
	bus.Emit(context.Background(), Event{Type: EventProgramStatus})
	if calls.Load() != 0 {
		t.Errorf("handler ran after Stop")
	}
	if err := bus.EmitSync(context.Background(), Event{Type: EventProgramStatus}); err != nil {
		t.Errorf("EmitSync after Stop: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("handler ran via EmitSync after Stop")
	}
}
