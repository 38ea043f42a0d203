/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package controlapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumentrack/console/internal/console"
)

func (a *API) djRoutes(r chi.Router) {
	r.Post("/{deck}/play", a.handleDJSimple("dj.play"))
	r.Post("/{deck}/play_quantized", a.handleDJPlayQuantized)
	r.Post("/{deck}/pause", a.handleDJSimple("dj.pause"))
	r.Post("/{deck}/stop", a.handleDJSimple("dj.stop"))
	r.Post("/{deck}/seek", a.handleDJSeek)
	r.Post("/{deck}/pitch", a.handleDJPitch)
	r.Post("/{deck}/tempo_range", a.handleDJTempoRange)
	r.Post("/{deck}/sync", a.handleDJSync)
	r.Post("/{deck}/master_tempo", a.handleDJMasterTempo)
	r.Post("/{deck}/nudge", a.handleDJNudge)
	r.Post("/{deck}/hotcue/{slot}/set", a.handleDJHotCue("dj.hotcue.set"))
	r.Post("/{deck}/hotcue/{slot}/trigger", a.handleDJHotCue("dj.hotcue.trigger"))
	r.Delete("/{deck}/hotcue/{slot}", a.handleDJHotCue("dj.hotcue.clear"))
	r.Put("/{deck}/loop", a.handleDJLoopSet)
	r.Post("/{deck}/loop/toggle", a.handleDJLoopToggle)
	r.Delete("/{deck}/loop", a.handleDJSimple("dj.loop.clear"))
}

func (a *API) handleDJSimple(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := chi.URLParam(r, "deck")
		a.core.Submit(console.Command{Name: name, Payload: console.DJCommand{Deck: deckID}})
		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *API) handleDJSeek(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		PositionSeconds float64 `json:"position_seconds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.seek", Payload: console.DJCommand{Deck: deckID, PositionSeconds: req.PositionSeconds}})
	w.WriteHeader(http.StatusAccepted)
}

// handleDJPlayQuantized schedules a deck to start playing delay_seconds from
// now, aligned so its first beat lands first_beat_time seconds later.
func (a *API) handleDJPlayQuantized(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		DelaySeconds  float64 `json:"delay_seconds"`
		FirstBeatTime float64 `json:"first_beat_time"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.play_quantized", Payload: console.DJCommand{Deck: deckID, DelaySeconds: req.DelaySeconds, FirstBeatTime: req.FirstBeatTime}})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleDJPitch(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		Pitch      float64 `json:"pitch"`
		TempoRange int     `json:"tempo_range"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.pitch", Payload: console.DJCommand{Deck: deckID, Pitch: req.Pitch, TempoRange: req.TempoRange}})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleDJTempoRange(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		Pitch      float64 `json:"pitch"`
		TempoRange int     `json:"tempo_range"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.tempo_range", Payload: console.DJCommand{Deck: deckID, Pitch: req.Pitch, TempoRange: req.TempoRange}})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleDJSync(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		TargetBPM  float64 `json:"target_bpm"`
		TempoRange int     `json:"tempo_range"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.sync", Payload: console.DJCommand{Deck: deckID, TargetBPM: req.TargetBPM, TempoRange: req.TempoRange}})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleDJMasterTempo(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.master_tempo", Payload: console.DJCommand{Deck: deckID, Enabled: req.Enabled}})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleDJNudge(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.nudge", Payload: console.DJCommand{Deck: deckID, Amount: req.Amount}})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleDJHotCue(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := chi.URLParam(r, "deck")
		slot, err := parseIDParam(r, "slot")
		if err != nil {
			writeError(w, err)
			return
		}
		a.core.Submit(console.Command{Name: name, Payload: console.DJCommand{Deck: deckID, Slot: slot}})
		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *API) handleDJLoopSet(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		LoopInSecs  float64 `json:"loop_in_secs"`
		LoopOutSecs float64 `json:"loop_out_secs"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.loop.set", Payload: console.DJCommand{Deck: deckID, LoopInSecs: req.LoopInSecs, LoopOutSecs: req.LoopOutSecs}})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleDJLoopToggle(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deck")
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.core.Submit(console.Command{Name: "dj.loop.toggle", Payload: console.DJCommand{Deck: deckID, Enabled: req.Enabled}})
	w.WriteHeader(http.StatusAccepted)
}
