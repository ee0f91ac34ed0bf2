package metrics

import (
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filevault"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	storageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Storage coordinator operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Compensating blob deletions after a failed metadata write.",
		},
		[]string{"result"},
	)

	orphanedBlobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_blobs_total",
			Help:      "Blobs left without a metadata row after a failed cleanup.",
		},
	)

	registerOnce sync.Once
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, storageOperations, compensations, orphanedBlobs)
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	if path == "" {
		path = "/metrics"
	}
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Middleware counts requests per route and status.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// ObserveOperation records one storage coordinator operation.
func ObserveOperation(operation, outcome string) {
	storageOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveCompensation records a compensating blob deletion and whether it succeeded.
func ObserveCompensation(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	compensations.WithLabelValues(result).Inc()
}

// ObserveOrphanedBlob records a blob that could not be removed.
func ObserveOrphanedBlob() {
	orphanedBlobs.Inc()
}
