package metrics

import (
	"time"

	"github.com/bounzy/bounzy-go/module"
)

type NoopCollector struct{}

var (
	_ module.LifecycleMetrics = (*NoopCollector)(nil)
	_ module.RelayerMetrics   = (*NoopCollector)(nil)
	_ module.RestMetrics      = (*NoopCollector)(nil)
)

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) TransactionSubmitted(action string)                                              {}
func (nc *NoopCollector) TransactionConfirmed(action string, duration time.Duration)                      {}
func (nc *NoopCollector) TransactionFailed(action string, kind string)                                    {}
func (nc *NoopCollector) ActionRejected(action string, reason string)                                     {}
func (nc *NoopCollector) PreviewServed(field string, cached bool)                                         {}
func (nc *NoopCollector) PreviewNotReady(field string)                                                    {}
func (nc *NoopCollector) PhaseChanged(from string, to string)                                             {}
func (nc *NoopCollector) EvidenceTracked(count int)                                                       {}
func (nc *NoopCollector) RefreshDuration(duration time.Duration)                                          {}
func (nc *NoopCollector) RelayerInitialized(duration time.Duration, success bool)                         {}
func (nc *NoopCollector) RelayerRequest(operation string, duration time.Duration, success bool)           {}
func (nc *NoopCollector) HTTPRequestsInFlight(route string, delta int)                                    {}
func (nc *NoopCollector) HTTPRequestServed(route string, method string, code int, duration time.Duration) {}
