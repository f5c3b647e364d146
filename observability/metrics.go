package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PackageOperationsTotal counts package operations by operation and result.
	PackageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonugetvs_package_operations_total",
			Help: "Total number of package operations by operation and result",
		},
		[]string{"operation", "result"}, // result: success, failure, noop
	)

	// PackageOperationDuration tracks package operation duration in seconds.
	PackageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gonugetvs_package_operation_duration_seconds",
			Help:    "Package operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to 40s
		},
		[]string{"operation"},
	)

	// PreinstallFailuresTotal counts packages that failed in a preinstall batch.
	PreinstallFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gonugetvs_preinstall_failures_total",
			Help: "Total number of preinstalled packages that failed to install",
		},
	)

	// ProjectCacheProjects tracks the number of projects in the project cache.
	ProjectCacheProjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gonugetvs_project_cache_projects",
			Help: "Number of projects currently held by the project cache",
		},
	)

	// RepositoryLookupsTotal counts chained repository lookups by the member
	// that answered them.
	RepositoryLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonugetvs_repository_lookups_total",
			Help: "Total number of repository chain lookups by answering member",
		},
		[]string{"repository", "result"}, // repository: primary, secondary; result: hit, miss
	)
)

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
