package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nxtd-project/nxtd/internal/api"
	"github.com/nxtd-project/nxtd/internal/config"
	"github.com/nxtd-project/nxtd/internal/datalog"
	"github.com/nxtd-project/nxtd/internal/events"
	"github.com/nxtd-project/nxtd/internal/telemetry"
)

// runMonitor runs nxtd as a long-lived daemon: it keeps a connection to
// the brick open, polls telemetry onto the event bus, and fans it out to
// the optional sinks (sqlite datalog, MQTT, REST API).
func runMonitor(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := dial(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to brick")
	}
	defer b.Close()

	info, err := b.GetDeviceInfo()
	if err != nil {
		log.Fatal().Err(err).Msg("brick did not answer device info request")
	}
	log.Info().Str("name", info.Name).Str("transport", cfg.GetBrick().Transport).
		Msg("connected to brick")

	eventBus := events.NewEventBus()

	var store *datalog.Store
	if cfg.Daemon.Datalog.Enabled {
		store, err = datalog.NewStore(cfg.Daemon.Datalog.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Daemon.Datalog.Path).
				Msg("failed to open datalog")
		}
		defer store.Close()
		store.Attach(eventBus)
		log.Info().Str("path", cfg.Daemon.Datalog.Path).Msg("datalog enabled")
	}

	var mqttHandler *telemetry.MQTTHandler
	if cfg.Daemon.MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg, eventBus)
		if err != nil {
			log.Warn().Err(err).Msg("MQTT telemetry unavailable (non-fatal)")
		}
	}

	poller := telemetry.NewPoller(cfg, eventBus, b)

	var apiServer *api.Server
	if cfg.Daemon.API.Enabled {
		apiServer = api.NewServer(cfg, b, store)
	}

	eventBus.Emit(ctx, events.Event{
		Type:   events.EventBrickConnected,
		Source: "monitor",
		Payload: events.BrickConnectionPayload{
			Name:      info.Name,
			Transport: cfg.GetBrick().Transport,
			Connected: true,
		},
	})

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	// Task 1: Telemetry poller. If the brick stops answering this is
	// fatal: a monitor with no brick has nothing left to do.
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Int("interval_sec", cfg.Daemon.Telemetry.PollIntervalSec).
			Msg("starting telemetry poller")
		if err := poller.Start(ctx); err != nil {
			errCh <- fmt.Errorf("poller: %w", err)
		}
	}()

	// Task 2: REST API server
	if apiServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Int("port", cfg.Daemon.API.Port).Msg("starting REST API server")
			if err := apiServer.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("API server failed (non-fatal)")
			}
		}()
	}

	// Task 3: MQTT telemetry
	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Str("broker", cfg.Daemon.MQTT.BrokerURL).Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed (non-fatal)")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	}

	log.Info().Msg("initiating graceful shutdown...")

	eventBus.Emit(ctx, events.Event{
		Type:   events.EventShutdown,
		Source: "monitor",
	})

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	eventBus.Stop()
	log.Info().Msg("shutdown complete")
}
