package events

type queueItem struct {
	message  map[string]interface{}
	data     []byte
	callback Callback
}

// eventQueue is a FIFO of encoded messages. It is not safe for concurrent use; the processor guards it.
type eventQueue struct {
	items []queueItem
	bytes int
}

func (q *eventQueue) len() int {
	return len(q.items)
}

func (q *eventQueue) push(item queueItem) {
	q.items = append(q.items, item)
	q.bytes += len(item.data)
}

// take removes up to maxCount items from the front of the queue, stopping early once the encoded size
// would pass maxBytes. At least one item is returned if the queue is not empty.
func (q *eventQueue) take(maxCount, maxBytes int) []queueItem {
	n := 0
	size := 0
	for n < len(q.items) && n < maxCount {
		itemSize := len(q.items[n].data)
		if n > 0 && size+itemSize > maxBytes {
			break
		}
		size += itemSize
		n++
	}
	if n == 0 {
		return nil
	}
	batch := make([]queueItem, n)
	copy(batch, q.items[:n])
	for i := 0; i < n; i++ {
		q.items[i] = queueItem{}
	}
	q.items = q.items[n:]
	if len(q.items) == 0 {
		q.items = nil
	}
	q.bytes -= size
	return batch
}
