/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumentrack/console/internal/audio"
	"github.com/lumentrack/console/internal/config"
	"github.com/lumentrack/console/internal/console"
	"github.com/lumentrack/console/internal/controlapi"
	"github.com/lumentrack/console/internal/cue"
	"github.com/lumentrack/console/internal/db"
	"github.com/lumentrack/console/internal/dmx"
	"github.com/lumentrack/console/internal/eventbus"
	"github.com/lumentrack/console/internal/events"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/library"
	"github.com/lumentrack/console/internal/logging"
	"github.com/lumentrack/console/internal/midi"
	"github.com/lumentrack/console/internal/programmer"
	"github.com/lumentrack/console/internal/scheduler"
	"github.com/lumentrack/console/internal/settings"
	"github.com/lumentrack/console/internal/tracking"
)

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "Lumentrack lighting console and two-deck DJ player",
	RunE:  runServe,
}

const defaultBPM = 120.0

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Environment)
	logger.Info().Msg("lumentrack console starting")

	doc, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	fixtures := fixture.NewState()
	track := tracking.NewState()
	cues := cue.NewManager(track)
	prog := programmer.NewState()
	bus := events.NewBus()
	sched := scheduler.New(256)

	dmxCfg := dmx.DefaultConfig()
	dmxCfg.Enabled = doc.Settings.DmxEnabled
	dmxCfg.BroadcastAddr = doc.Settings.DmxDestIP
	dmxCfg.Port = int(doc.Settings.DmxPort)
	renderer := dmx.NewRenderer(dmxCfg, logging.Component(logger, "dmx"))
	sched.Register(dmx.NewModule(renderer), true)

	core := console.New(fixtures, track, cues, prog, renderer, sched, bus, defaultBPM)

	audioEngine := audio.NewEngine()
	core.SetAudioEngine(audioEngine)
	sched.Register(audio.NewModule(audioEngine, func(ev audio.BeatEvent) {
		bus.Publish(events.EventDeckBeat, events.Payload{
			"deck":             ev.Deck,
			"beat_number":      ev.Event.BeatNumber,
			"position_seconds": ev.Event.PositionSecs,
			"is_downbeat":      ev.Event.IsDownbeat,
			"bpm":              ev.Event.BPM,
		})
		core.AdoptDjMasterBeat(ev.Event.BeatNumber, ev.Event.BPM)
	}), true)

	if doc.Settings.MidiEnabled {
		port := midi.NewDriverPort(doc.Settings.MidiDevice)
		mm := midi.New(port, defaultMIDIMappings(), func(name string, payload any) {
			core.Submit(console.Command{Name: name, Payload: payload})
		}, core.SetBPM, logging.Component(logger, "midi"))
		sched.Register(mm, true)
	}

	repo := library.NewRepository(database, logging.Component(logger, "library"))
	analyzer := library.NewAnalyzer(repo, cfg.FFmpegBin, logging.Component(logger, "analyzer"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultConfig()
		natsCfg.URL = cfg.NATSURL
		natsBus, err := eventbus.NewNATSBus(natsCfg, eventbus.GenerateNodeID(), logging.Component(logger, "eventbus"))
		if err != nil {
			return fmt.Errorf("connect nats event bus: %w", err)
		}
		defer natsBus.Close()
		eventbus.Bridge(ctx, bus, natsBus)
	}

	jwtSecret := []byte(cfg.JWTSigningKey)
	api := controlapi.New(core, repo, database, jwtSecret, cfg.SettingsPath, logger, analyzer, ctx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start module scheduler: %w", err)
	}

	go func() {
		if err := core.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("console core loop exited")
		}
	}()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("control API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("control api server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("lumentrack console shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}

	cancel()

	if err := sched.Shutdown(10 * time.Second); err != nil {
		logger.Error().Err(err).Msg("module scheduler shutdown failed")
	}

	logger.Info().Msg("lumentrack console stopped")
	return nil
}
