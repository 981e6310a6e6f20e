package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bounzy/bounzy-go/module"
)

type RestCollector struct {
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
}

var _ module.RestMetrics = (*RestCollector)(nil)

func NewRestCollector(registerer prometheus.Registerer) *RestCollector {
	factory := promauto.With(registerer)

	return &RestCollector{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "request_duration_seconds",
			Namespace: namespaceBounzy,
			Subsystem: subsystemRest,
			Help:      "the duration of requests served by the REST API",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelRoute, LabelMethod, LabelCode}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "requests_in_flight",
			Namespace: namespaceBounzy,
			Subsystem: subsystemRest,
			Help:      "the number of requests currently being served",
		}, []string{LabelRoute}),
	}
}

func (rc *RestCollector) HTTPRequestServed(route string, method string, code int, duration time.Duration) {
	rc.requestDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(duration.Seconds())
}

func (rc *RestCollector) HTTPRequestsInFlight(route string, delta int) {
	rc.inFlight.WithLabelValues(route).Add(float64(delta))
}
