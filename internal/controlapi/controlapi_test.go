/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package controlapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumentrack/console/internal/auth"
	"github.com/lumentrack/console/internal/console"
	"github.com/lumentrack/console/internal/cue"
	"github.com/lumentrack/console/internal/dmx"
	"github.com/lumentrack/console/internal/events"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/library"
	"github.com/lumentrack/console/internal/programmer"
	"github.com/lumentrack/console/internal/scheduler"
	"github.com/lumentrack/console/internal/tracking"
)

var testJWTSecret = []byte("control-api-test-secret")

func newTestAPI(t *testing.T) (*API, string) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&library.Track{}, &library.BeatGrid{}, &library.HotCue{}, &library.TrackWaveform{}, &auth.Operator{}, &auth.APIKey{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	core := console.New(
		fixture.NewState(),
		tracking.NewState(),
		cue.NewManager(tracking.NewState()),
		programmer.NewState(),
		dmx.NewRenderer(dmx.Config{Enabled: false}, zerolog.Nop()),
		scheduler.New(16),
		events.NewBus(),
		120.0,
	)
	repo := library.NewRepository(db, zerolog.Nop())

	settingsPath := filepath.Join(t.TempDir(), "settings.json")

	api := New(core, repo, db, testJWTSecret, settingsPath, zerolog.Nop(), nil, nil)
	return api, settingsPath
}

func issueTestToken(t *testing.T) string {
	t.Helper()
	token, err := auth.Issue(testJWTSecret, auth.Claims{OperatorID: "op1", Role: "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, api *API, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+issueTestToken(t))
	}
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	api, _ := newTestAPI(t)
	rr := doRequest(t, api, http.MethodGet, "/healthz", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestAPIRoutesRejectMissingToken(t *testing.T) {
	api, _ := newTestAPI(t)
	rr := doRequest(t, api, http.MethodGet, "/api/v1/fixtures", nil, false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestPatchAndGetFixture(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := doRequest(t, api, http.MethodPost, "/api/v1/fixtures", patchFixtureRequest{
		Universe:     0,
		StartAddress: 1,
		Channels:     []fixture.Channel{{Role: fixture.RoleDimmer}},
	}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	rr = doRequest(t, api, http.MethodGet, "/api/v1/fixtures", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var fixtures []fixture.Fixture
	if err := json.Unmarshal(rr.Body.Bytes(), &fixtures); err != nil {
		t.Fatalf("unmarshal fixtures: %v", err)
	}
	if len(fixtures) != 1 || fixtures[0].ID != created["id"] {
		t.Fatalf("expected one fixture with id %d, got %+v", created["id"], fixtures)
	}
}

func TestUnpatchUnknownFixtureReturnsNotFound(t *testing.T) {
	api, _ := newTestAPI(t)
	rr := doRequest(t, api, http.MethodDelete, "/api/v1/fixtures/999", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCueListAndTransportFlow(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := doRequest(t, api, http.MethodPost, "/api/v1/cues/lists", map[string]string{"name": "main"}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var list map[string]int
	_ = json.Unmarshal(rr.Body.Bytes(), &list)

	rr = doRequest(t, api, http.MethodPost, "/api/v1/cues/go", nil, true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
}

func TestSettingsGetAndPutRoundTrip(t *testing.T) {
	api, settingsPath := newTestAPI(t)
	_ = settingsPath

	rr := doRequest(t, api, http.MethodGet, "/api/v1/settings/", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, api, http.MethodPut, "/api/v1/settings/", map[string]any{
		"target_fps":             44,
		"enable_autosave":        true,
		"autosave_interval_secs": 300,
		"audio_device":           "",
		"audio_buffer_size":      512,
		"audio_sample_rate":      44100,
		"midi_enabled":           false,
		"midi_channel":           1,
		"dmx_enabled":            true,
		"dmx_broadcast":          true,
		"dmx_source_ip":          "0.0.0.0",
		"dmx_dest_ip":            "255.255.255.255",
		"dmx_port":               6454,
		"wled_enabled":           false,
	}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	if _, err := os.Stat(settingsPath); err != nil {
		t.Fatalf("expected settings file to be written: %v", err)
	}
}

func TestModuleStatusEndpoint(t *testing.T) {
	api, _ := newTestAPI(t)
	rr := doRequest(t, api, http.MethodGet, "/api/v1/modules/", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
