package datalog

import (
	"context"
	"fmt"
	"time"

	"github.com/nxtd-project/nxtd/internal/events"
)

// Sample kinds stored in the samples table.
const (
	KindBattery = "battery"
	KindSensor  = "sensor"
)

// Sample is one persisted telemetry reading. Port is meaningful for
// sensor samples only.
type Sample struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Port      int       `json:"port"`
	Value     int       `json:"value"`
	Raw       int       `json:"raw"`
	SampledAt time.Time `json:"sampled_at"`
}

// FileRecord is one persisted file transfer.
type FileRecord struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Size      uint32    `json:"size"`
	Direction string    `json:"direction"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store persists telemetry samples and file transfers.
type Store struct {
	db *Database
}

// NewStore opens the datalog database and creates the schema.
func NewStore(dbPath string) (*Store, error) {
	database, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: database}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate datalog database: %w", err)
	}
	return s, nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			port INTEGER NOT NULL DEFAULT 0,
			value INTEGER NOT NULL,
			raw INTEGER NOT NULL DEFAULT 0,
			sampled_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_samples_kind_time
			ON samples(kind, sampled_at);

		CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			size INTEGER NOT NULL,
			direction TEXT NOT NULL,
			fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSample inserts one telemetry reading.
func (s *Store) RecordSample(sample Sample) error {
	_, err := s.db.Exec(
		`INSERT INTO samples (kind, port, value, raw, sampled_at) VALUES (?, ?, ?, ?, ?)`,
		sample.Kind, sample.Port, sample.Value, sample.Raw, sample.SampledAt.UTC(),
	)
	return err
}

// RecordFile inserts one file transfer record. Direction is "download"
// or "upload".
func (s *Store) RecordFile(name string, size uint32, direction string) error {
	_, err := s.db.Exec(
		`INSERT INTO files (name, size, direction) VALUES (?, ?, ?)`,
		name, size, direction,
	)
	return err
}

// RecentSamples returns up to limit samples of one kind, newest first.
func (s *Store) RecentSamples(kind string, limit int) ([]Sample, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, port, value, raw, sampled_at
		 FROM samples WHERE kind = ?
		 ORDER BY sampled_at DESC, id DESC LIMIT ?`,
		kind, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.ID, &sm.Kind, &sm.Port, &sm.Value, &sm.Raw, &sm.SampledAt); err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// RecentFiles returns up to limit file records, newest first.
func (s *Store) RecentFiles(limit int) ([]FileRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, name, size, direction, fetched_at
		 FROM files ORDER BY fetched_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var fr FileRecord
		if err := rows.Scan(&fr.ID, &fr.Name, &fr.Size, &fr.Direction, &fr.FetchedAt); err != nil {
			return nil, err
		}
		files = append(files, fr)
	}
	return files, rows.Err()
}

// Attach subscribes the store to the event bus so that telemetry
// samples are persisted as they happen. File transfers are recorded
// directly by the CLI through RecordFile; they never cross the bus.
func (s *Store) Attach(bus *events.EventBus) {
	bus.Subscribe(events.EventBatterySample, "datalog.battery", s.onBatterySample)
	bus.Subscribe(events.EventSensorSample, "datalog.sensor", s.onSensorSample)
}

func (s *Store) onBatterySample(ctx context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(events.BatterySamplePayload)
	if !ok {
		return fmt.Errorf("unexpected battery payload %T", ev.Payload)
	}
	return s.RecordSample(Sample{
		Kind:      KindBattery,
		Value:     int(payload.Millivolts),
		SampledAt: payload.SampledAt,
	})
}

func (s *Store) onSensorSample(ctx context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(events.SensorSamplePayload)
	if !ok {
		return fmt.Errorf("unexpected sensor payload %T", ev.Payload)
	}
	if !payload.Valid {
		return nil
	}
	return s.RecordSample(Sample{
		Kind:      KindSensor,
		Port:      int(payload.Port) + 1,
		Value:     int(payload.Scaled),
		Raw:       int(payload.Raw),
		SampledAt: payload.SampledAt,
	})
}
