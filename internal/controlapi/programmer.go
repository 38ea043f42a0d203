/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package controlapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumentrack/console/internal/console"
	"github.com/lumentrack/console/internal/tracking"
)

func (a *API) programmerRoutes(r chi.Router) {
	r.Put("/selection", a.handleSetSelection)
	r.Post("/selection/{id}", a.handleAddSelection)
	r.Delete("/selection/{id}", a.handleRemoveSelection)
	r.Get("/selection", a.handleGetSelection)

	r.Put("/value", a.handleSetProgrammerValue)
	r.Post("/effect", a.handleAddProgrammerEffect)
	r.Post("/clear", a.handleClearProgrammer)
	r.Put("/preview", a.handleSetPreviewMode)
}

func (a *API) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FixtureIDs []int `json:"fixture_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Programmer.SetSelectedFixtures(req.FixtureIDs)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddSelection(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a.core.Programmer.AddSelectedFixture(id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRemoveSelection(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a.core.Programmer.RemoveSelectedFixture(id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.core.Programmer.SelectedFixtures())
}

func (a *API) handleSetProgrammerValue(w http.ResponseWriter, r *http.Request) {
	var req staticValue
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Programmer.AddValue(req.FixtureID, req.Role, req.Value)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddProgrammerEffect(w http.ResponseWriter, r *http.Request) {
	var req tracking.EffectMapping
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Programmer.AddEffect(req)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearProgrammer(w http.ResponseWriter, r *http.Request) {
	a.core.Programmer.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSetPreviewMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "programmer.preview", Payload: req.Enabled})
	w.WriteHeader(http.StatusAccepted)
}
