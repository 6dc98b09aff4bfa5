package apiclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests  *prometheus.CounterVec
	retries   prometheus.Counter
	refreshes *prometheus.CounterVec
}

// newMetrics reg 為 nil 時建立未註冊的 collector，計數照常運作。
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizz",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "HTTP responses received by the API client, by status code.",
		}, []string{"status"}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "quizz",
			Subsystem: "client",
			Name:      "retry_total",
			Help:      "Requests re-issued after a successful token refresh.",
		}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizz",
			Subsystem: "client",
			Name:      "refresh_total",
			Help:      "Session refresh calls issued by the interceptor, by result.",
		}, []string{"result"}),
	}
}

func (m *metrics) observeStatus(status int) {
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
}
