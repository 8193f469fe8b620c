package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/nxtd-project/nxtd/internal/brick"
	"github.com/nxtd-project/nxtd/internal/config"
	"github.com/nxtd-project/nxtd/internal/events"
	"github.com/nxtd-project/nxtd/internal/protocol"
	"github.com/nxtd-project/nxtd/internal/util"
)

// BrickReader is the subset of brick operations the poller exercises.
type BrickReader interface {
	GetBatteryLevel() (uint16, error)
	GetInputValues(port brick.InPort) (*brick.InputValues, error)
	GetCurrentProgramName() (string, error)
}

// Poller samples the brick on a fixed interval and emits the readings
// on the event bus. A single poll cycle reads the battery, the
// configured sensor ports, and the running program name.
type Poller struct {
	cfg      *config.Config
	eventBus *events.EventBus
	reader   BrickReader
	logger   zerolog.Logger
}

// NewPoller creates a telemetry poller.
func NewPoller(cfg *config.Config, eventBus *events.EventBus, reader BrickReader) *Poller {
	return &Poller{
		cfg:      cfg,
		eventBus: eventBus,
		reader:   reader,
		logger:   util.ComponentLogger("telemetry"),
	}
}

// Start runs the polling loop until the context is cancelled. The first
// cycle runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	interval := time.Duration(p.cfg.GetDaemon().Telemetry.PollIntervalSec) * time.Second
	p.logger.Info().Dur("interval", interval).Msg("telemetry poller started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("telemetry poller stopped")
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one sampling cycle. Individual read failures are logged and
// skipped; the cycle continues with the remaining reads.
func (p *Poller) poll(ctx context.Context) {
	now := time.Now()

	if mv, err := p.reader.GetBatteryLevel(); err != nil {
		p.logger.Warn().Err(err).Msg("battery read failed")
	} else {
		p.eventBus.Emit(ctx, events.Event{
			Type:   events.EventBatterySample,
			Source: "telemetry",
			Payload: events.BatterySamplePayload{
				Millivolts: mv,
				SampledAt:  now,
			},
		})
	}

	for _, portNum := range p.cfg.GetDaemon().Telemetry.SensorPorts {
		port := brick.InPort(portNum - 1)
		vals, err := p.reader.GetInputValues(port)
		if err != nil {
			p.logger.Warn().Err(err).Int("port", portNum).Msg("sensor read failed")
			continue
		}
		p.eventBus.Emit(ctx, events.Event{
			Type:   events.EventSensorSample,
			Source: "telemetry",
			Payload: events.SensorSamplePayload{
				Port:       uint8(vals.Port),
				SensorType: uint8(vals.SensorType),
				Raw:        vals.Raw,
				Scaled:     vals.Scaled,
				Valid:      vals.Valid,
				SampledAt:  now,
			},
		})
	}

	name, err := p.reader.GetCurrentProgramName()
	switch {
	case err == nil:
		p.eventBus.Emit(ctx, events.Event{
			Type:    events.EventProgramStatus,
			Source:  "telemetry",
			Payload: events.ProgramStatusPayload{Name: name, Running: true},
		})
	case isNoProgram(err):
		p.eventBus.Emit(ctx, events.Event{
			Type:    events.EventProgramStatus,
			Source:  "telemetry",
			Payload: events.ProgramStatusPayload{Running: false},
		})
	default:
		p.logger.Warn().Err(err).Msg("program name read failed")
	}
}

// isNoProgram reports the brick's "nothing running" answer, which is an
// expected state rather than a fault.
func isNoProgram(err error) bool {
	var devErr *protocol.DeviceError
	return errors.As(err, &devErr) && devErr.Code == protocol.StatusNoActiveProgram
}
