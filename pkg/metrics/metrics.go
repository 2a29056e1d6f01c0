package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Group client metrics
	GroupClientRetryTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sekas_client_group_retry_total",
			Help: "Total number of group request retries",
		},
	)

	GroupRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sekas_client_group_request_duration_seconds",
			Help:    "Group request duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	GroupNotAccessibleTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sekas_client_group_not_accessible_total",
			Help: "Total number of calls that exhausted all replicas",
		},
	)

	EpochNotMatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sekas_client_epoch_not_match_total",
			Help: "Total number of EpochNotMatch responses observed",
		},
	)

	// Migrate client metrics
	MigrateRetryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sekas_client_migrate_retry_total",
			Help: "Total number of migration RPC retries by operation",
		},
		[]string{"operation"},
	)

	// Router metrics
	RouterLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sekas_client_router_lookup_total",
			Help: "Total number of router lookups by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RouterGroupsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sekas_client_router_groups_total",
			Help: "Number of groups currently known to the router",
		},
	)

	// Connection manager metrics
	NodeConnectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sekas_client_node_connect_total",
			Help: "Total number of node connections established by outcome",
		},
		[]string{"outcome"},
	)
)

// Register registers all client metrics with the given registry
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		GroupClientRetryTotal,
		GroupRequestDuration,
		GroupNotAccessibleTotal,
		EpochNotMatchTotal,
		MigrateRetryTotal,
		RouterLookupTotal,
		RouterGroupsTotal,
		NodeConnectTotal,
	)
}

// RegisterDefault registers all client metrics with the default registry
func RegisterDefault() {
	Register(prometheus.DefaultRegisterer)
}
