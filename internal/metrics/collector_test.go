package metrics

import (
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordEnqueued()
	c.RecordDropped(DropReasonQueueFull)
	c.RecordAttempt()
	c.RecordBatch(ResultSuccess, 1, time.Millisecond)
	c.SetQueueState(1, 10)
	c.SetFlushesInFlight(1)
}

func TestCollectorRecordsValues(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector("analytics", registry, ldlog.NewDisabledLoggers())

	c.RecordEnqueued()
	c.RecordEnqueued()
	c.RecordDropped(DropReasonQueueFull)
	c.RecordAttempt()
	c.RecordBatch(ResultSuccess, 2, 50*time.Millisecond)
	c.SetQueueState(3, 120)
	c.SetFlushesInFlight(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.messagesEnqueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.messagesDropped.WithLabelValues(DropReasonQueueFull)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.messagesDropped.WithLabelValues(DropReasonClosed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sendAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batchesSent.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.queueLength))
	assert.Equal(t, 120.0, testutil.ToFloat64(c.queueBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.flushesInFlight))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "analytics_messages_enqueued_total")
	assert.Contains(t, names, "analytics_batch_duration_seconds")
}

func TestCollectorsSharingRegistryReuseInstruments(t *testing.T) {
	registry := prometheus.NewRegistry()
	mockLog := ldlogtest.NewMockLog()
	c1 := NewCollector("analytics", registry, mockLog.Loggers)
	c2 := NewCollector("analytics", registry, mockLog.Loggers)

	c1.RecordEnqueued()
	c2.RecordEnqueued()

	assert.Equal(t, 2.0, testutil.ToFloat64(c1.messagesEnqueued))
	assert.Len(t, mockLog.GetOutput(ldlog.Warn), 0)
}
