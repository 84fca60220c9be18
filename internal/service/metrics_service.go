package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService aggregates the engine's Prometheus collectors.
type MetricsService struct {
	registry *prometheus.Registry

	scansTotal       *prometheus.CounterVec
	pairingConflicts prometheus.Counter
	pairingActive    prometheus.Gauge
	closeoutClosed   prometheus.Counter
	httpDuration     *prometheus.HistogramVec
}

// NewMetricsService registers all collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_scans_total",
			Help: "Hardware and QR scans by outcome.",
		}, []string{"outcome"}),
		pairingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_pairing_conflicts_total",
			Help: "Pairing starts rejected because the slot was held.",
		}),
		pairingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_pairing_session_active",
			Help: "Whether the pairing slot is currently occupied.",
		}),
		closeoutClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_closeout_records_closed_total",
			Help: "Records finalised by the end-of-day sweep.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.scansTotal,
		m.pairingConflicts,
		m.pairingActive,
		m.closeoutClosed,
		m.httpDuration,
	)
	return m
}

// IncScan counts one scan by outcome.
func (m *MetricsService) IncScan(outcome string) {
	m.scansTotal.WithLabelValues(outcome).Inc()
}

// IncPairingConflict counts one rejected pairing start.
func (m *MetricsService) IncPairingConflict() {
	m.pairingConflicts.Inc()
}

// SetPairingSessionActive flips the pairing slot gauge.
func (m *MetricsService) SetPairingSessionActive(active bool) {
	if active {
		m.pairingActive.Set(1)
		return
	}
	m.pairingActive.Set(0)
}

// AddCloseoutClosed counts records finalised by a sweep.
func (m *MetricsService) AddCloseoutClosed(n int64) {
	if n > 0 {
		m.closeoutClosed.Add(float64(n))
	}
}

// ObserveHTTPRequest records one request's latency.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler exposes the registry for scraping.
func (m *MetricsService) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
