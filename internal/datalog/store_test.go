package datalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nxtd-project/nxtd/internal/events"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nxtd.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndQuerySamples(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := s.RecordSample(Sample{
			Kind:      KindBattery,
			Value:     8000 + i,
			SampledAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordSample: %v", err)
		}
	}
	if err := s.RecordSample(Sample{Kind: KindSensor, Port: 1, Value: 42, Raw: 512, SampledAt: base}); err != nil {
		t.Fatalf("RecordSample sensor: %v", err)
	}

	got, err := s.RecentSamples(KindBattery, 2)
	if err != nil {
		t.Fatalf("RecentSamples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d samples, want 2", len(got))
	}
	if got[0].Value != 8002 || got[1].Value != 8001 {
		t.Errorf("samples out of order: %+v", got)
	}
}

func TestRecordAndQueryFiles(t *testing.T) {
	s := newTestStore(t)

	if err := s.RecordFile("demo.rxe", 1024, "download"); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}
	files, err := s.RecentFiles(10)
	if err != nil {
		t.Fatalf("RecentFiles: %v", err)
	}
	if len(files) != 1 || files[0].Name != "demo.rxe" || files[0].Size != 1024 {
		t.Errorf("files = %+v", files)
	}
}

func TestAttachPersistsBusEvents(t *testing.T) {
	s := newTestStore(t)
	bus := events.NewEventBus()
	s.Attach(bus)

	now := time.Now().UTC()
	err := bus.EmitSync(context.Background(), events.Event{
		Type:    events.EventBatterySample,
		Source:  "test",
		Payload: events.BatterySamplePayload{Millivolts: 7500, SampledAt: now},
	})
	if err != nil {
		t.Fatalf("EmitSync battery: %v", err)
	}

	// Invalid sensor readings are dropped, not stored.
	err = bus.EmitSync(context.Background(), events.Event{
		Type:    events.EventSensorSample,
		Source:  "test",
		Payload: events.SensorSamplePayload{Port: 0, Valid: false, SampledAt: now},
	})
	if err != nil {
		t.Fatalf("EmitSync sensor: %v", err)
	}

	batt, err := s.RecentSamples(KindBattery, 10)
	if err != nil {
		t.Fatalf("RecentSamples: %v", err)
	}
	if len(batt) != 1 || batt[0].Value != 7500 {
		t.Errorf("battery samples = %+v", batt)
	}

	sensors, err := s.RecentSamples(KindSensor, 10)
	if err != nil {
		t.Fatalf("RecentSamples sensor: %v", err)
	}
	if len(sensors) != 0 {
		t.Errorf("invalid sensor sample stored: %+v", sensors)
	}
}
