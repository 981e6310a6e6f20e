package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	lc := NewLifecycleCollector(registry)

	lc.TransactionSubmitted("claim")
	lc.TransactionSubmitted("claim")
	lc.TransactionConfirmed("claim", 3*time.Second)
	lc.TransactionFailed("validate", "transaction")
	lc.PreviewServed("bounty", true)
	lc.EvidenceTracked(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(lc.txSubmitted.WithLabelValues("claim")))
	assert.Equal(t, 1.0, testutil.ToFloat64(lc.txFailed.WithLabelValues("validate", "transaction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(lc.previews.WithLabelValues("bounty", "true")))
	assert.Equal(t, 4.0, testutil.ToFloat64(lc.tracked))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// collectors registered on separate registries do not collide
	NewLifecycleCollector(prometheus.NewRegistry())
}

func TestRelayerCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	rc := NewRelayerCollector(registry)
	rc.RelayerRequest("encrypt", time.Second, true)
	rc.RelayerInitialized(time.Second, false)

	count, err := testutil.GatherAndCount(registry, "bounzy_relayer_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
