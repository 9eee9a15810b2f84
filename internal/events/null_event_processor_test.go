package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullEventProcessorInvokesCallbacksImmediately(t *testing.T) {
	n := NewNullEventProcessor()
	calls := 0
	callback := func(batch *Batch, err error) {
		assert.Nil(t, batch)
		assert.NoError(t, err)
		calls++
	}

	require.NoError(t, n.SendEvent(map[string]interface{}{"type": "track"}, callback))
	require.NoError(t, n.SendEvent(map[string]interface{}{"type": "track"}, nil))
	n.Flush(callback)
	n.Flush(nil)
	assert.Equal(t, 2, calls)

	assert.NoError(t, n.Drain(context.Background()))
	require.NoError(t, n.Close())
}
