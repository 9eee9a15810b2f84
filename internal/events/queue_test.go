package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemOfSize(id string, size int) queueItem {
	return queueItem{message: map[string]interface{}{"messageId": id}, data: make([]byte, size)}
}

func itemIDs(items []queueItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.message["messageId"].(string))
	}
	return ids
}

func TestQueueTakeRespectsCount(t *testing.T) {
	var q eventQueue
	for _, id := range []string{"a", "b", "c"} {
		q.push(itemOfSize(id, 10))
	}
	assert.Equal(t, 30, q.bytes)

	batch := q.take(2, 1000)
	assert.Equal(t, []string{"a", "b"}, itemIDs(batch))
	assert.Equal(t, 1, q.len())
	assert.Equal(t, 10, q.bytes)

	batch = q.take(2, 1000)
	assert.Equal(t, []string{"c"}, itemIDs(batch))
	assert.Equal(t, 0, q.len())
	assert.Equal(t, 0, q.bytes)

	assert.Nil(t, q.take(2, 1000))
}

func TestQueueTakeRespectsByteLimit(t *testing.T) {
	var q eventQueue
	for _, id := range []string{"a", "b", "c"} {
		q.push(itemOfSize(id, 40))
	}

	batch := q.take(10, 100)
	assert.Equal(t, []string{"a", "b"}, itemIDs(batch))
	assert.Equal(t, 40, q.bytes)
}

func TestQueueTakeAlwaysReturnsOneItem(t *testing.T) {
	var q eventQueue
	q.push(itemOfSize("huge", 500))
	q.push(itemOfSize("next", 5))

	batch := q.take(10, 100)
	require.Len(t, batch, 1)
	assert.Equal(t, "huge", batch[0].message["messageId"])
	assert.Equal(t, 1, q.len())
}

func TestQueueTakeKeepsFIFOOrderAcrossPushes(t *testing.T) {
	var q eventQueue
	q.push(itemOfSize("a", 1))
	q.push(itemOfSize("b", 1))
	first := q.take(1, 100)
	q.push(itemOfSize("c", 1))
	rest := q.take(10, 100)

	assert.Equal(t, []string{"a"}, itemIDs(first))
	assert.Equal(t, []string{"b", "c"}, itemIDs(rest))
}
