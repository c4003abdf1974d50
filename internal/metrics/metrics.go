// Package metrics exposes Prometheus metrics for the dashboard.
// Every metric lives in a private registry served on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storx_files"

// Metrics holds the dashboard collectors
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	listingDuration prometheus.Histogram
	objectsListed   prometheus.Counter
	bucketsSkipped  prometheus.Counter
	uploadSizeBytes prometheus.Histogram
	bucketsDeleted  prometheus.Counter
}

// New creates and registers the collectors. Go runtime and process
// collectors are registered alongside them.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.listingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "listing_duration_seconds",
		Help:      "Time to build the aggregated listing across all buckets",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	m.objectsListed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "objects_listed_total",
		Help:      "Objects returned by aggregated listings",
	})

	m.bucketsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "buckets_skipped_total",
		Help:      "Buckets left out of a listing because enumeration failed",
	})

	// 1KB to 1GB
	m.uploadSizeBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_size_bytes",
		Help:      "Sizes of uploaded objects",
		Buckets:   prometheus.ExponentialBuckets(1024, 10, 7),
	})

	m.bucketsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "buckets_deleted_total",
		Help:      "Buckets emptied and removed",
	})

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.listingDuration,
		m.objectsListed,
		m.bucketsSkipped,
		m.uploadSizeBytes,
		m.bucketsDeleted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency. Routes are labelled by
// their registered pattern, not the raw path, to keep cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.requestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// ObserveListing records one completed aggregated listing
func (m *Metrics) ObserveListing(d time.Duration, buckets, objects int) {
	m.listingDuration.Observe(d.Seconds())
	m.objectsListed.Add(float64(objects))
}

// BucketSkipped counts a bucket whose listing failed. The name is logged by
// the lister, not used as a label.
func (m *Metrics) BucketSkipped(_ string) {
	m.bucketsSkipped.Inc()
}

func (m *Metrics) ObserveUpload(size int64) {
	m.uploadSizeBytes.Observe(float64(size))
}

func (m *Metrics) BucketDeleted() {
	m.bucketsDeleted.Inc()
}
