package pipeline

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "authsession",
	Subsystem: "pipeline",
	Name:      "requests_total",
	Help:      "Number of request attempts sent to the backend, by method and status",
}, []string{"method", "status"})

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "authsession",
	Subsystem: "pipeline",
	Name:      "request_duration_seconds",
	Help:      "Duration of request attempts",
	Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
}, []string{"method"})

var retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "authsession",
	Subsystem: "pipeline",
	Name:      "retries_total",
	Help:      "Number of retries, by the policy that asked for them",
}, []string{"policy"})

var resyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "authsession",
	Subsystem: "pipeline",
	Name:      "resyncs_total",
	Help:      "Number of client resyncs triggered by invalid auth responses",
})

func observeRequest(req *Request, resp *Response, d time.Duration) {
	status := "transport_error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	requestsTotal.WithLabelValues(req.Method, status).Inc()
	requestDuration.WithLabelValues(req.Method).Observe(d.Seconds())
}
