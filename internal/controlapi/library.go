/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package controlapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumentrack/console/internal/library"
)

func (a *API) libraryRoutes(r chi.Router) {
	r.Get("/tracks", a.handleListTracks)
	r.Post("/tracks", a.handleCreateTrack)
	r.Get("/tracks/{id}", a.handleGetTrack)
	r.Put("/tracks/{id}", a.handleUpdateTrack)
	r.Delete("/tracks/{id}", a.handleDeleteTrack)

	r.Get("/tracks/{id}/beatgrid", a.handleGetBeatGrid)
	r.Put("/tracks/{id}/beatgrid", a.handlePutBeatGrid)

	r.Get("/tracks/{id}/waveform", a.handleGetWaveform)

	r.Get("/tracks/{id}/hotcues", a.handleListHotCues)
	r.Put("/tracks/{id}/hotcues/{slot}", a.handleSetHotCue)
	r.Delete("/tracks/{id}/hotcues/{slot}", a.handleDeleteHotCue)
}

func (a *API) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := a.repo.ListTracks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *API) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	var t library.Track
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, err)
		return
	}
	if err := a.repo.CreateTrack(r.Context(), &t); err != nil {
		writeError(w, err)
		return
	}
	if a.analyzer != nil && t.FilePath != "" {
		go a.analyzer.Analyze(a.analysisCtx, t.ID, t.FilePath)
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := a.repo.GetTrack(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var t library.Track
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, err)
		return
	}
	t.ID = id
	if err := a.repo.UpdateTrack(r.Context(), &t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.repo.DeleteTrack(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetBeatGrid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bg, err := a.repo.GetBeatGrid(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bg)
}

func (a *API) handlePutBeatGrid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var bg library.BeatGrid
	if err := decodeJSON(r, &bg); err != nil {
		writeError(w, err)
		return
	}
	bg.TrackID = id
	if err := a.repo.UpsertBeatGrid(r.Context(), &bg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bg)
}

func (a *API) handleGetWaveform(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wf, err := a.repo.GetWaveform(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (a *API) handleListHotCues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cues, err := a.repo.ListHotCues(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cues)
}

func (a *API) handleSetHotCue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	slot, err := parseIDParam(r, "slot")
	if err != nil {
		writeError(w, err)
		return
	}
	var hc library.HotCue
	if err := decodeJSON(r, &hc); err != nil {
		writeError(w, err)
		return
	}
	hc.TrackID = id
	hc.Slot = slot
	if err := a.repo.SetHotCue(r.Context(), &hc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hc)
}

func (a *API) handleDeleteHotCue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	slot, err := parseIDParam(r, "slot")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.repo.DeleteHotCue(r.Context(), id, slot); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
