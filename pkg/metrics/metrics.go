package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CameraResolutions counts visible-camera resolutions by outcome
	// (ok|unknown_tenant|error).
	CameraResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgrid_camera_resolutions_total",
			Help: "Total number of visible-camera resolutions",
		},
		[]string{"result"},
	)

	// GrantMutations counts grant lifecycle operations and their outcome.
	GrantMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgrid_grant_mutations_total",
			Help: "Total number of grant lifecycle mutations",
		},
		[]string{"operation", "result"},
	)

	// ExpiredGrantsSwept tracks grants deactivated by the maintenance sweeper.
	ExpiredGrantsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camgrid_expired_grants_swept_total",
			Help: "Grants marked inactive after passing their expiry",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camgrid_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
