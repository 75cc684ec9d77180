// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starseeker_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starseeker_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starseeker_resolutions_total",
			Help: "Object resolutions by category and outcome kind.",
		},
		[]string{"category", "outcome"},
	)

	resolutionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starseeker_resolution_duration_seconds",
			Help:    "Object resolution duration in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"category"},
	)

	satelliteFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starseeker_satellite_fetch_total",
			Help: "Live satellite element fetches by result.",
		},
		[]string{"result"},
	)

	satelliteElements = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "starseeker_satellite_elements",
			Help: "Element sets in the most recent satellite fetch.",
		},
	)

	transmitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starseeker_transmit_total",
			Help: "Pointing transmissions by sink status code (0 for transport errors).",
		},
		[]string{"code"},
	)

	mountReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starseeker_mount_reloads_total",
			Help: "Mount calibration reloads by result.",
		},
		[]string{"result"},
	)

	voiceStageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starseeker_voice_stage_duration_seconds",
			Help:    "Voice pipeline stage duration in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		resolutionsTotal,
		resolutionDurationSeconds,
		satelliteFetchTotal,
		satelliteElements,
		transmitTotal,
		mountReloadsTotal,
		voiceStageSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResolution records one resolution attempt.
func ObserveResolution(category, outcome string, d time.Duration) {
	resolutionsTotal.WithLabelValues(category, outcome).Inc()
	resolutionDurationSeconds.WithLabelValues(category).Observe(d.Seconds())
}

// ObserveSatelliteFetch records a live element fetch. count is ignored on failure.
func ObserveSatelliteFetch(err error, count int) {
	if err != nil {
		satelliteFetchTotal.WithLabelValues("error").Inc()
		return
	}
	satelliteFetchTotal.WithLabelValues("ok").Inc()
	satelliteElements.Set(float64(count))
}

// ObserveTransmit records a transmission with the sink's status code.
func ObserveTransmit(code int) {
	transmitTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// ObserveMountReload records a calibration reload.
func ObserveMountReload(err error) {
	if err != nil {
		mountReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	mountReloadsTotal.WithLabelValues("ok").Inc()
}

// ObserveVoiceStage records the duration of a voice pipeline stage.
func ObserveVoiceStage(stage string, d time.Duration) {
	voiceStageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// knownRoutes are the exact paths served by the API.
var knownRoutes = map[string]bool{
	"/":                  true,
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/v1/resolve":    true,
	"/api/v1/point":      true,
	"/api/v1/interpret":  true,
	"/api/v1/voice":      true,
	"/api/v1/satellites": true,
	"/api/v1/mount":      true,
	"/api/v1/journal":    true,
}

// normalizeRoute bounds label cardinality: unknown paths collapse to "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}
