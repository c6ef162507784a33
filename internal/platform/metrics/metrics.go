// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics collects and exposes Prometheus metrics for the session gate.

Domain packages depend on the [Recorder] interface only; the composition root
passes a [Collector] in production and [Nop] in tests.
*/
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// # Label Values

const (
	LoginSucceeded          = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginUnavailable        = "unavailable"

	ResolvedCredentials     = "credentials"
	ResolvedFederated       = "federated"
	ResolvedUnauthenticated = "unauthenticated"
	ResolvedSuperseded      = "superseded"
)

// Recorder is the metrics surface used by the auth and federated packages.
type Recorder interface {
	RecordLogin(outcome string)
	RecordResolution(result string, duration time.Duration)
	RecordFederatedEvent(event string)
	SetActiveGates(count int)
}

// Collector is the Prometheus implementation of [Recorder].
type Collector struct {
	loginAttempts   *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	resolutionTime  prometheus.Histogram
	federatedEvents *prometheus.CounterVec
	activeGates     prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	collector := &Collector{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxboard_login_attempts_total",
			Help: "Credential login attempts by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxboard_gate_resolutions_total",
			Help: "Session gate resolution passes by result.",
		}, []string{"result"}),
		resolutionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxboard_gate_resolution_seconds",
			Help:    "Latency of session gate resolution passes.",
			Buckets: prometheus.DefBuckets,
		}),
		federatedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxboard_federated_events_total",
			Help: "Session change notifications received from the federated provider.",
		}, []string{"event"}),
		activeGates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxboard_active_gates",
			Help: "Number of live per-client session gates.",
		}),
	}

	reg.MustRegister(
		collector.loginAttempts,
		collector.resolutions,
		collector.resolutionTime,
		collector.federatedEvents,
		collector.activeGates,
	)

	return collector
}

// RecordLogin counts one login attempt.
func (collector *Collector) RecordLogin(outcome string) {
	collector.loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordResolution counts one resolution pass and observes its latency.
func (collector *Collector) RecordResolution(result string, duration time.Duration) {
	collector.resolutions.WithLabelValues(result).Inc()
	collector.resolutionTime.Observe(duration.Seconds())
}

// RecordFederatedEvent counts one provider notification.
func (collector *Collector) RecordFederatedEvent(event string) {
	collector.federatedEvents.WithLabelValues(event).Inc()
}

// SetActiveGates publishes the current gate registry size.
func (collector *Collector) SetActiveGates(count int) {
	collector.activeGates.Set(float64(count))
}

// Handler returns the HTTP handler for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordLogin(string)                     {}
func (Nop) RecordResolution(string, time.Duration) {}
func (Nop) RecordFederatedEvent(string)            {}
func (Nop) SetActiveGates(int)                     {}
