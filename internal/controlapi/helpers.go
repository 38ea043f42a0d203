/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package controlapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumentrack/console/internal/consoleerr"
)

// parseIDParam parses a chi URL path parameter as an int, wrapping a parse
// failure as an invalid-input error.
func parseIDParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, consoleerr.ErrInvalidInput)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a consoleerr sentinel to an HTTP status and writes a
// JSON error body, following the closed error-kind mapping of §7.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, consoleerr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, consoleerr.ErrInvalidInput),
		errors.Is(err, consoleerr.ErrValidationError),
		errors.Is(err, consoleerr.ErrParseError):
		status = http.StatusBadRequest
	case errors.Is(err, consoleerr.ErrBusyResource):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
