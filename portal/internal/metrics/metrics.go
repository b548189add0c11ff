package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library_portal"

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Requests sent to the library API.",
	}, []string{"method", "status"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Latency of library API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Optimistic mutations by entity, kind and outcome.",
	}, []string{"entity", "kind", "outcome"})

	loads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loads_total",
		Help:      "Bulk loads of dashboard collections.",
	}, []string{"view", "collection", "result"})

	sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workspaces",
		Help:      "Signed-in sessions holding a workspace.",
	})
)

// ObserveAPI records one API round trip. Status 0 means the request never got an answer.
func ObserveAPI(method string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	apiRequests.WithLabelValues(method, code).Inc()
	apiLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func ObserveMutation(entity, kind, outcome string) {
	mutations.WithLabelValues(entity, kind, outcome).Inc()
}

func ObserveLoad(view, collection string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	loads.WithLabelValues(view, collection, result).Inc()
}

func SetWorkspaces(n int) {
	sessions.Set(float64(n))
}
