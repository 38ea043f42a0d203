/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package controlapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumentrack/console/internal/console"
	"github.com/lumentrack/console/internal/cue"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/tracking"
)

func (a *API) cueRoutes(r chi.Router) {
	r.Post("/lists", a.handleAddCueList)
	r.Delete("/lists/{listID}", a.handleRemoveCueList)
	r.Put("/lists/{listID}/audio", a.handleSetCueListAudio)
	r.Post("/lists/{listID}/cues", a.handleAddCue)
	r.Put("/lists/{listID}/cues/{cueID}", a.handleUpdateCue)
	r.Delete("/lists/{listID}/cues/{cueID}", a.handleRemoveCue)
	r.Post("/lists/{listID}/goto/{cueIdx}", a.handleGoToCue)
	r.Post("/jump/{cueIdx}", a.handleJumpToCue)

	r.Post("/go", a.handleTransportGo)
	r.Post("/stop", a.handleTransportStop)
	r.Post("/hold", a.handleTransportHold)

	r.Get("/state", a.handleCueState)
}

func (a *API) handleAddCueList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := a.core.Cues.AddCueList(req.Name)
	writeJSON(w, http.StatusCreated, map[string]int{"id": id})
}

func (a *API) handleRemoveCueList(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.core.Cues.RemoveCueList(listID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSetCueListAudio(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.core.Cues.SetAudioFile(listID, req.Path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cueRequest struct {
	Name         string                        `json:"name"`
	FadeTimeMS   int64                         `json:"fade_time_ms"`
	TimecodeMS   *int64                        `json:"timecode_ms"`
	IsBlocking   bool                          `json:"is_blocking"`
	Statics      []staticValue                 `json:"statics"`
	Effects      []tracking.EffectMapping      `json:"effects"`
	PixelEffects []tracking.PixelEffectMapping `json:"pixel_effects"`
}

// staticValue is the JSON-safe form of one tracking.ChannelKey->value
// entry; ChannelKey is a struct and cannot be a JSON object key directly.
type staticValue struct {
	FixtureID int                 `json:"fixture_id"`
	Role      fixture.ChannelRole `json:"role"`
	Value     uint8               `json:"value"`
}

func (req cueRequest) toCue() cue.Cue {
	statics := make(map[tracking.ChannelKey]uint8, len(req.Statics))
	for _, sv := range req.Statics {
		statics[tracking.ChannelKey{FixtureID: sv.FixtureID, Role: sv.Role}] = sv.Value
	}
	c := cue.Cue{
		Name:         req.Name,
		FadeTime:     time.Duration(req.FadeTimeMS) * time.Millisecond,
		IsBlocking:   req.IsBlocking,
		Statics:      statics,
		Effects:      req.Effects,
		PixelEffects: req.PixelEffects,
	}
	if req.TimecodeMS != nil {
		tc := time.Duration(*req.TimecodeMS) * time.Millisecond
		c.Timecode = &tc
	}
	return c
}

func (a *API) handleAddCue(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req cueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := a.core.Cues.AddCue(listID, req.toCue())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"id": id})
}

func (a *API) handleUpdateCue(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}
	cueID, err := parseIDParam(r, "cueID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req cueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c := req.toCue()
	c.ID = cueID
	if err := a.core.Cues.UpdateCue(listID, c); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRemoveCue(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}
	cueID, err := parseIDParam(r, "cueID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.core.Cues.RemoveCue(listID, cueID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGoToCue(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}
	cueIdx, err := parseIDParam(r, "cueIdx")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.core.Cues.GoToCue(listID, cueIdx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleJumpToCue(w http.ResponseWriter, r *http.Request) {
	cueIdx, err := parseIDParam(r, "cueIdx")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.core.Cues.JumpToCue(cueIdx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleTransportGo(w http.ResponseWriter, r *http.Request) {
	a.core.Submit(console.Command{Name: "cue.go"})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleTransportStop(w http.ResponseWriter, r *http.Request) {
	a.core.Submit(console.Command{Name: "cue.stop"})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleTransportHold(w http.ResponseWriter, r *http.Request) {
	a.core.Submit(console.Command{Name: "cue.hold"})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleCueState(w http.ResponseWriter, r *http.Request) {
	state, listID, cueID, elapsed := a.core.Cues.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"playback_state": state,
		"cue_list_id":    listID,
		"cue_id":         cueID,
		"elapsed_ms":     elapsed.Milliseconds(),
	})
}
