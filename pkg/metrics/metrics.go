// Package metrics exposes the Prometheus counters shared by the flag control
// plane and the chaos simulators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FlagUpdates counts successful flag updates through the control API.
	FlagUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feature_flag_updates_total",
		Help: "Number of feature flag updates applied via the control API",
	}, []string{"flag"})

	// FlagResets counts full resets of the flag namespace.
	FlagResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feature_flag_resets_total",
		Help: "Number of times the flag catalog was reset to defaults",
	})

	// InjectedFaults counts background or inline chaos activations by kind.
	InjectedFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chaos_injected_faults_total",
		Help: "Number of chaos simulations started or applied, by kind",
	}, []string{"kind"})

	// SimulatedErrors counts deliberate request failures by operation.
	SimulatedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chaos_simulated_errors_total",
		Help: "Number of simulated errors raised by the failure simulator",
	}, []string{"operation"})
)
