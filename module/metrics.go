package module

import (
	"time"
)

// LifecycleMetrics captures the evidence lifecycle flows run by this client.
type LifecycleMetrics interface {
	// TransactionSubmitted is called when a transaction for the action was signed and sent.
	TransactionSubmitted(action string)

	// TransactionConfirmed is called when the transaction for the action was mined successfully.
	TransactionConfirmed(action string, duration time.Duration)

	// TransactionFailed is called when a flow for the action failed. kind is the
	// error category the failure was classified as.
	TransactionFailed(action string, kind string)

	// ActionRejected is called when an action was refused before any work was
	// done, e.g. because another flow for the same evidence is in flight.
	ActionRejected(action string, reason string)

	// PreviewServed is called for each preview request answered with a value.
	PreviewServed(field string, cached bool)

	// PreviewNotReady is called when a preview was requested for a field that is
	// not yet publicly decryptable.
	PreviewNotReady(field string)

	// PhaseChanged is called when the watcher observed an evidence item moving to a new phase.
	PhaseChanged(from string, to string)

	// EvidenceTracked sets the number of evidence items the watcher refreshes.
	EvidenceTracked(count int)

	// RefreshDuration measures one refresh round of the watcher.
	RefreshDuration(duration time.Duration)
}

// RelayerMetrics captures calls to the FHE relayer.
type RelayerMetrics interface {
	// RelayerInitialized is called once with the outcome of the relayer initialization.
	RelayerInitialized(duration time.Duration, success bool)

	// RelayerRequest measures a single encryption or decryption call.
	RelayerRequest(operation string, duration time.Duration, success bool)
}

// RestMetrics captures requests served by the REST API.
type RestMetrics interface {
	HTTPRequestServed(route string, method string, code int, duration time.Duration)
	HTTPRequestsInFlight(route string, delta int)
}
