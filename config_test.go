package analytics

import (
	"net/http"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
)

func TestEmptyConfigUsesDefaults(t *testing.T) {
	r := Config{}.resolve()
	assert.Equal(t, DefaultHost+DefaultPath, r.batchURI())
	assert.Equal(t, DefaultFlushAt, r.flushAt)
	assert.Equal(t, DefaultFlushInterval, r.flushInterval)
	assert.Equal(t, DefaultMaxQueueSize, r.maxQueueSize)
	assert.Equal(t, DefaultMaxQueueCount, r.maxQueueCount)
	assert.Equal(t, DefaultMaxMessageSize, r.maxMessageSize)
	assert.Equal(t, DefaultMaxConcurrentFlushes, r.maxConcurrentFlushes)
	assert.Equal(t, DefaultRetryCount, r.retryCount)
	assert.Equal(t, time.Duration(0), r.timeout)
	assert.False(t, r.disabled)
}

func TestFlushIntervalZeroIsDefaultAndNegativeDisables(t *testing.T) {
	assert.Equal(t, DefaultFlushInterval, Config{FlushInterval: 0}.resolve().flushInterval)
	assert.Equal(t, 2*time.Second, Config{FlushInterval: 2 * time.Second}.resolve().flushInterval)
	assert.Less(t, Config{FlushInterval: -1}.resolve().flushInterval, time.Duration(0))
}

func TestTrailingSlashesAreRemoved(t *testing.T) {
	r := Config{Host: "https://example.com///", Path: "/custom/batch/"}.resolve()
	assert.Equal(t, "https://example.com/custom/batch", r.batchURI())
}

func TestFlushAtHasFloorOfOne(t *testing.T) {
	for _, n := range []int{0, -5} {
		r := Config{FlushAt: ldvalue.NewOptionalInt(n)}.resolve()
		assert.Equal(t, 1, r.flushAt, "FlushAt %d", n)
	}
}

func TestExplicitZeroesAreKept(t *testing.T) {
	r := Config{
		MaxQueueSize:  ldvalue.NewOptionalInt(0),
		MaxQueueCount: ldvalue.NewOptionalInt(0),
		RetryCount:    ldvalue.NewOptionalInt(0),
	}.resolve()
	assert.Equal(t, 0, r.maxQueueSize)
	assert.Equal(t, 0, r.maxQueueCount)
	assert.Equal(t, 0, r.retryCount)
}

func TestNegativeValuesAreClamped(t *testing.T) {
	r := Config{
		MaxQueueSize: ldvalue.NewOptionalInt(-1),
		RetryCount:   ldvalue.NewOptionalInt(-1),
		Timeout:      -time.Second,
	}.resolve()
	assert.Equal(t, 0, r.maxQueueSize)
	assert.Equal(t, 0, r.retryCount)
	assert.Equal(t, time.Duration(0), r.timeout)
}

func TestDescribe(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		expected := ldvalue.ObjectBuild().
			Set("batchURI", ldvalue.String("https://api.segment.io/v1/batch")).
			Set("flushAt", ldvalue.Int(20)).
			Set("flushIntervalMillis", ldvalue.Int(10000)).
			Set("maxQueueSize", ldvalue.Int(450*1024)).
			Set("maxQueueCount", ldvalue.Int(10000)).
			Set("maxMessageSize", ldvalue.Int(32*1024)).
			Set("maxConcurrentFlushes", ldvalue.Int(5)).
			Set("timeoutMillis", ldvalue.Int(0)).
			Set("retryCount", ldvalue.Int(3)).
			Set("disabled", ldvalue.Bool(false)).
			Set("compress", ldvalue.Bool(false)).
			Set("customHTTPClient", ldvalue.Bool(false)).
			Set("metrics", ldvalue.Bool(false)).
			Build()
		assert.JSONEq(t, expected.JSONString(), Config{}.Describe().JSONString())
	})

	t.Run("disabled timer and custom client", func(t *testing.T) {
		d := Config{FlushInterval: -1, HTTPClient: &http.Client{}, Timeout: 1500 * time.Millisecond}.Describe()
		assert.Equal(t, ldvalue.Null(), d.GetByKey("flushIntervalMillis"))
		assert.Equal(t, ldvalue.Bool(true), d.GetByKey("customHTTPClient"))
		assert.Equal(t, 1500, d.GetByKey("timeoutMillis").IntValue())
	})
}
