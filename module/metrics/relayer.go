package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bounzy/bounzy-go/module"
)

type RelayerCollector struct {
	initDuration    *prometheus.HistogramVec
	requestDuration *prometheus.HistogramVec
}

var _ module.RelayerMetrics = (*RelayerCollector)(nil)

func NewRelayerCollector(registerer prometheus.Registerer) *RelayerCollector {
	factory := promauto.With(registerer)

	return &RelayerCollector{
		initDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "init_duration_seconds",
			Namespace: namespaceBounzy,
			Subsystem: subsystemRelayer,
			Help:      "the duration of the relayer client initialization",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelResult}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "request_duration_seconds",
			Namespace: namespaceBounzy,
			Subsystem: subsystemRelayer,
			Help:      "the duration of encryption and public decryption requests",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{LabelOperation, LabelResult}),
	}
}

func (rc *RelayerCollector) RelayerInitialized(duration time.Duration, success bool) {
	rc.initDuration.WithLabelValues(result(success)).Observe(duration.Seconds())
}

func (rc *RelayerCollector) RelayerRequest(operation string, duration time.Duration, success bool) {
	rc.requestDuration.WithLabelValues(operation, result(success)).Observe(duration.Seconds())
}
