package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bounzy/bounzy-go/module"
)

type LifecycleCollector struct {
	txSubmitted     *prometheus.CounterVec
	txConfirmed     *prometheus.HistogramVec
	txFailed        *prometheus.CounterVec
	actionsRejected *prometheus.CounterVec
	previews        *prometheus.CounterVec
	previewNotReady *prometheus.CounterVec
	phaseChanges    *prometheus.CounterVec
	tracked         prometheus.Gauge
	refreshDuration prometheus.Histogram
}

var _ module.LifecycleMetrics = (*LifecycleCollector)(nil)

func NewLifecycleCollector(registerer prometheus.Registerer) *LifecycleCollector {
	factory := promauto.With(registerer)

	return &LifecycleCollector{
		txSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "transactions_submitted_total",
			Namespace: namespaceBounzy,
			Subsystem: subsystemLifecycle,
			Help:      "the number of transactions sent to the contract",
		}, []string{LabelAction}),
		txConfirmed: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "transaction_confirmation_seconds",
			Namespace: namespaceBounzy,
			Subsystem: subsystemLifecycle,
			Help:      "the duration from submission until the transaction was mined",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{LabelAction}),
		txFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "flows_failed_total",
			Namespace: namespaceBounzy,
			Subsystem: subsystemLifecycle,
			Help:      "the number of failed lifecycle flows by error kind",
		}, []string{LabelAction, LabelKind}),
		actionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "actions_rejected_total",
			Namespace: namespaceBounzy,
			Subsystem: subsystemLifecycle,
			Help:      "the number of actions refused before any work was done",
		}, []string{LabelAction, LabelReason}),
		previews: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "previews_total",
			Namespace: namespaceBounzy,
			Subsystem: subsystemLifecycle,
			Help:      "the number of previews served",
		}, []string{LabelField, LabelCached}),
		previewNotReady: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "previews_not_ready_total",
			Namespace: namespaceBounzy,
			Subsystem: subsystemLifecycle,
			Help:      "the number of previews requested before the field was decryptable",
		}, []string{LabelField}),
		phaseChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "phase_changes_total",
			Namespace: namespaceBounzy,
			Subsystem: subsystemWatcher,
			Help:      "the number of observed evidence phase changes",
		}, []string{LabelFrom, LabelTo}),
		tracked: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "tracked_evidence",
			Namespace: namespaceBounzy,
			Subsystem: subsystemWatcher,
			Help:      "the number of evidence items refreshed by the watcher",
		}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:      "refresh_duration_seconds",
			Namespace: namespaceBounzy,
			Subsystem: subsystemWatcher,
			Help:      "the duration of one refresh round",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (lc *LifecycleCollector) TransactionSubmitted(action string) {
	lc.txSubmitted.WithLabelValues(action).Inc()
}

func (lc *LifecycleCollector) TransactionConfirmed(action string, duration time.Duration) {
	lc.txConfirmed.WithLabelValues(action).Observe(duration.Seconds())
}

func (lc *LifecycleCollector) TransactionFailed(action string, kind string) {
	lc.txFailed.WithLabelValues(action, kind).Inc()
}

func (lc *LifecycleCollector) ActionRejected(action string, reason string) {
	lc.actionsRejected.WithLabelValues(action, reason).Inc()
}

func (lc *LifecycleCollector) PreviewServed(field string, cached bool) {
	label := "false"
	if cached {
		label = "true"
	}
	lc.previews.WithLabelValues(field, label).Inc()
}

func (lc *LifecycleCollector) PreviewNotReady(field string) {
	lc.previewNotReady.WithLabelValues(field).Inc()
}

func (lc *LifecycleCollector) PhaseChanged(from string, to string) {
	lc.phaseChanges.WithLabelValues(from, to).Inc()
}

func (lc *LifecycleCollector) EvidenceTracked(count int) {
	lc.tracked.Set(float64(count))
}

func (lc *LifecycleCollector) RefreshDuration(duration time.Duration) {
	lc.refreshDuration.Observe(duration.Seconds())
}
