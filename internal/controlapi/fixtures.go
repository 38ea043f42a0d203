/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package controlapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumentrack/console/internal/fixture"
)

func (a *API) fixtureRoutes(r chi.Router) {
	r.Get("/", a.handleListFixtures)
	r.Post("/", a.handlePatchFixture)
	r.Get("/{id}", a.handleGetFixture)
	r.Delete("/{id}", a.handleUnpatchFixture)
	r.Put("/{id}/channel", a.handleSetChannel)
}

func (a *API) handleListFixtures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.core.Fixtures.All())
}

type patchFixtureRequest struct {
	Universe      int                   `json:"universe"`
	StartAddress  int                   `json:"start_address"`
	ProfileRef    string                `json:"profile_ref"`
	Channels      []fixture.Channel     `json:"channels"`
	PanTiltLimits fixture.PanTiltLimits `json:"pan_tilt_limits"`
	IsPixelBar    bool                  `json:"is_pixel_bar"`
}

func (a *API) handlePatchFixture(w http.ResponseWriter, r *http.Request) {
	var req patchFixtureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := a.core.Fixtures.Patch(fixture.Fixture{
		ProfileRef:    req.ProfileRef,
		Universe:      req.Universe,
		StartAddress:  req.StartAddress,
		Channels:      req.Channels,
		PanTiltLimits: req.PanTiltLimits,
		IsPixelBar:    req.IsPixelBar,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"id": id})
}

func (a *API) handleGetFixture(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := a.core.Fixtures.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (a *API) handleUnpatchFixture(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.core.Fixtures.Unpatch(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setChannelRequest struct {
	Role  fixture.ChannelRole `json:"role"`
	Value uint8               `json:"value"`
}

func (a *API) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req setChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.core.Fixtures.SetChannelValue(id, req.Role, req.Value); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
