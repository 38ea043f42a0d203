/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package controlapi implements the command/event interface of §6: a chi
// HTTP router over the console core's shared state plus a broadcast
// WebSocket relaying console.Core.Bus events to connected clients. Router
// shape and middleware chain follow the reference server's New(cfg,
// logger) wiring, trimmed to this console's dependency set.
package controlapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumentrack/console/internal/auth"
	"github.com/lumentrack/console/internal/console"
	"github.com/lumentrack/console/internal/library"
	"github.com/lumentrack/console/internal/settings"
	"github.com/lumentrack/console/internal/telemetry"
)

// API bundles the HTTP router over the console's shared state.
type API struct {
	core         *console.Core
	repo         *library.Repository
	db           *gorm.DB
	jwtSecret    []byte
	settingsPath string
	logger       zerolog.Logger
	router       chi.Router
	analyzer     *library.Analyzer
	analysisCtx  context.Context
}

// New constructs the control API router and wires every route group.
// analyzer may be nil; track import then skips detached waveform/beat grid
// analysis. analysisCtx bounds detached analysis tasks: cancelling it (on
// console shutdown) drops any in-flight decode without writing results.
func New(core *console.Core, repo *library.Repository, db *gorm.DB, jwtSecret []byte, settingsPath string, logger zerolog.Logger, analyzer *library.Analyzer, analysisCtx context.Context) *API {
	if analysisCtx == nil {
		analysisCtx = context.Background()
	}
	a := &API{
		core:         core,
		repo:         repo,
		db:           db,
		jwtSecret:    jwtSecret,
		settingsPath: settingsPath,
		logger:       logger.With().Str("component", "controlapi").Logger(),
		analyzer:     analyzer,
		analysisCtx:  analysisCtx,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("lumentrack-console-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	router.Get("/healthz", a.handleHealthz)
	router.Handle("/metrics", telemetry.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.MiddlewareWithJWT(db, jwtSecret))

		r.Route("/fixtures", a.fixtureRoutes)
		r.Route("/cues", a.cueRoutes)
		r.Route("/programmer", a.programmerRoutes)
		r.Route("/dj", a.djRoutes)
		r.Route("/settings", a.settingsRoutes)
		r.Route("/library", a.libraryRoutes)
		r.Route("/modules", a.moduleRoutes)
		r.Get("/events", a.handleEvents)
	})

	a.router = router
	return a
}

// Router exposes the chi router for mounting or tests.
func (a *API) Router() chi.Router {
	return a.router
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) moduleRoutes(r chi.Router) {
	r.Get("/", a.handleModuleStatus)
}

func (a *API) handleModuleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.core.Scheduler.Status())
}

func (a *API) settingsRoutes(r chi.Router) {
	r.Get("/", a.handleGetSettings)
	r.Put("/", a.handlePutSettings)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	doc, err := settings.Load(a.settingsPath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var s settings.Settings
	if err := decodeJSON(r, &s); err != nil {
		writeError(w, err)
		return
	}
	doc, err := settings.Load(a.settingsPath)
	if err != nil {
		writeError(w, err)
		return
	}
	doc.Settings = s
	if err := settings.Save(a.settingsPath, doc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
