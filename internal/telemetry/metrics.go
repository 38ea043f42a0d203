/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIActiveConnections tracks in-flight control API requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "console_api_active_connections",
		Help: "Number of in-flight control API requests.",
	})

	// APIRequestDuration tracks control API request latency by method, route, status, and operator role.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_api_request_duration_seconds",
		Help:    "Control API request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status", "role"})

	// APIRequestsTotal counts control API requests by method, route, status, and operator role.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_api_requests_total",
		Help: "Total control API requests.",
	}, []string{"method", "route", "status", "role"})

	// DatabaseQueryDuration tracks gorm query latency by operation and table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_database_query_duration_seconds",
		Help:    "Database query latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts gorm query failures by operation and error kind.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_database_errors_total",
		Help: "Total database query errors.",
	}, []string{"operation", "kind"})

	// DatabaseConnectionsActive tracks the open connection pool size.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "console_database_connections_active",
		Help: "Open database connections.",
	})

	// TickDuration tracks console core tick latency.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "console_tick_duration_seconds",
		Help:    "Console core per-tick pipeline duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	// DMXFramesTotal counts DMX universes composed and sent.
	DMXFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_dmx_frames_total",
		Help: "Total DMX universe frames composed.",
	}, []string{"universe"})

	// AudioUnderrunsTotal counts audio engine buffer underruns by deck.
	AudioUnderrunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_audio_underruns_total",
		Help: "Total audio buffer underruns.",
	}, []string{"deck"})

	// ModuleStatus reports 1 for a running module and 0 otherwise, by module id.
	ModuleStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "console_module_status",
		Help: "Module running status (1 = running, 0 = stopped).",
	}, []string{"module"})

	// APIWebSocketConnections tracks open event-stream websocket connections.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "console_api_websocket_connections",
		Help: "Number of open control API event-stream websocket connections.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
