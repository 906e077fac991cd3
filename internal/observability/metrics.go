package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the gateway.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	RelayRejections  *prometheus.CounterVec
	AnswerDocuments  prometheus.Counter
	OutboundCalls    *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Relay calls to the voice backend by flow and status class.",
		}, []string{"flow", "class"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_ms",
			Help:      "Latency of relay calls to the voice backend in milliseconds.",
			Buckets:   []float64{50, 100, 200, 400, 800, 1500, 3000, 6000, 12000},
		}, []string{"flow"}),
		RelayRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_rejections_total",
			Help:      "Requests rejected before any upstream call, by flow and reason.",
		}, []string{"flow", "reason"}),
		AnswerDocuments: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_documents_total",
			Help:      "Telephony answer documents rendered.",
		}),
		OutboundCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_calls_total",
			Help:      "Outbound telephony calls by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveUpstream records one completed backend call.
func (m *Metrics) ObserveUpstream(flow string, status int, d time.Duration) {
	m.UpstreamRequests.WithLabelValues(flow, statusClass(status)).Inc()
	m.UpstreamLatency.WithLabelValues(flow).Observe(float64(d.Milliseconds()))
}

// ObserveUnreachable records a backend call that failed at the
// transport layer.
func (m *Metrics) ObserveUnreachable(flow string, d time.Duration) {
	m.UpstreamRequests.WithLabelValues(flow, "unreachable").Inc()
	m.UpstreamLatency.WithLabelValues(flow).Observe(float64(d.Milliseconds()))
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
