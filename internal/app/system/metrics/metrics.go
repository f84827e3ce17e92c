// Package metrics holds the Prometheus instruments shared across the
// service. Everything is registered with the default registry, which
// /metrics exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DirectoryLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schoolhub",
			Name:      "tenant_directory_lookups_total",
			Help:      "Tenant directory lookups by result (hit, miss, not_found, error).",
		}, []string{"result"})

	DirectoryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "schoolhub",
			Name:      "tenant_directory_entries",
			Help:      "School ids currently cached by the tenant directory.",
		})

	PoolHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "schoolhub",
			Name:      "tenant_pool_handles",
			Help:      "Tenant database handles currently cached.",
		})

	PoolRefusals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "schoolhub",
			Name:      "tenant_pool_not_connected_total",
			Help:      "Handle requests refused because the primary connection was down.",
		})

	PrimaryConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "schoolhub",
			Name:      "primary_connected",
			Help:      "1 when the primary database connection is healthy, 0 otherwise.",
		})

	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schoolhub",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome (error kind, or success).",
		}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		DirectoryLookups,
		DirectoryEntries,
		PoolHandles,
		PoolRefusals,
		PrimaryConnected,
		LoginAttempts,
	)
}
