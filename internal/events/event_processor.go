package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/ingestkit/go-analytics-sdk/internal/metrics"
)

// Room left in each request for the envelope around the messages.
const batchEnvelopeAllowance = 1024

type defaultEventProcessor struct {
	config   EventsConfiguration
	sender   EventSender
	loggers  ldlog.Loggers
	metrics  *metrics.Collector
	now      func() time.Time
	flushSem *semaphore.Weighted

	lock        sync.Mutex
	queue       eventQueue
	timer       *time.Timer
	timerGen    uint64
	started     bool
	closed      bool
	overflowing bool
	inFlight    int
	draining    int
	idleCh      chan struct{}
	closeOnce   sync.Once
}

// NewDefaultEventProcessor creates an instance of the default implementation of message buffering
// and dispatch.
func NewDefaultEventProcessor(config EventsConfiguration) EventProcessor {
	if config.FlushAt < 1 {
		config.FlushAt = 1
	}
	if config.MaxConcurrentFlushes < 1 {
		config.MaxConcurrentFlushes = 1
	}
	nowFn := config.Now
	if nowFn == nil {
		nowFn = now
	}
	idleCh := make(chan struct{})
	close(idleCh)
	return &defaultEventProcessor{
		config:   config,
		sender:   config.EventSender,
		loggers:  config.Loggers,
		metrics:  config.Metrics,
		now:      nowFn,
		flushSem: semaphore.NewWeighted(int64(config.MaxConcurrentFlushes)),
		idleCh:   idleCh,
	}
}

func (ep *defaultEventProcessor) SendEvent(message map[string]interface{}, callback Callback) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to encode message")
	}
	if len(data) > ep.config.MaxMessageSize {
		return errors.Wrapf(ErrMessageTooLarge, "encoded message is %d bytes, limit is %d",
			len(data), ep.config.MaxMessageSize)
	}

	ep.lock.Lock()
	if ep.closed {
		ep.lock.Unlock()
		ep.metrics.RecordDropped(metrics.DropReasonClosed)
		ep.invokeCallback(callback, nil, ErrClosed)
		return nil
	}
	if ep.queue.len() >= ep.config.MaxQueueCount || ep.queue.bytes >= ep.config.MaxQueueSize {
		// Only the first drop of an overflow episode is logged; the episode ends with the next
		// successful enqueue.
		warn := !ep.overflowing
		ep.overflowing = true
		ep.lock.Unlock()
		if warn {
			ep.loggers.Warn("Analytics queue is full; messages are being dropped")
		}
		ep.metrics.RecordDropped(metrics.DropReasonQueueFull)
		ep.invokeCallback(callback, nil, ErrQueueFull)
		return nil
	}

	ep.overflowing = false
	ep.queue.push(queueItem{message: message, data: data, callback: callback})
	ep.metrics.RecordEnqueued()

	switch {
	case !ep.started:
		// A single message should not have to wait for the timer.
		ep.started = true
		ep.tryDispatchLocked()
	case ep.shouldFlushLocked():
		if !ep.tryDispatchLocked() {
			ep.rearmTimerLocked()
		}
	default:
		ep.rearmTimerLocked()
	}
	ep.publishQueueStateLocked()
	ep.lock.Unlock()
	return nil
}

func (ep *defaultEventProcessor) Flush(callback Callback) {
	ep.lock.Lock()
	items := ep.takeBatchLocked()
	if len(items) == 0 {
		ep.lock.Unlock()
		ep.invokeCallback(callback, nil, nil)
		return
	}
	ep.startDispatchLocked(items, callback, ep.flushSem.TryAcquire(1))
	ep.publishQueueStateLocked()
	ep.lock.Unlock()
}

func (ep *defaultEventProcessor) Drain(ctx context.Context) error {
	ep.lock.Lock()
	ep.draining++
	ep.lock.Unlock()
	defer func() {
		ep.lock.Lock()
		ep.draining--
		ep.lock.Unlock()
	}()

	for {
		ep.lock.Lock()
		for ep.tryDispatchLocked() {
		}
		ep.publishQueueStateLocked()
		if ep.queue.len() == 0 && ep.inFlight == 0 {
			ep.lock.Unlock()
			return nil
		}
		idleCh := ep.idleCh
		ep.lock.Unlock()

		// New messages may arrive while we wait, so the state is checked again after every wake-up.
		select {
		case <-idleCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (ep *defaultEventProcessor) Close() error {
	var err error
	ep.closeOnce.Do(func() {
		ep.lock.Lock()
		ep.closed = true
		ep.stopTimerLocked()
		ep.lock.Unlock()
		err = ep.Drain(context.Background())
	})
	return err
}

func (ep *defaultEventProcessor) shouldFlushLocked() bool {
	return ep.queue.len() >= ep.config.FlushAt || ep.queue.bytes >= ep.config.MaxQueueSize
}

// takeBatchLocked removes the next batch from the queue. The idle timer is restarted if anything is
// left behind.
func (ep *defaultEventProcessor) takeBatchLocked() []queueItem {
	ep.stopTimerLocked()
	items := ep.queue.take(ep.config.FlushAt, MaxBatchSize-batchEnvelopeAllowance)
	if ep.queue.len() > 0 {
		ep.rearmTimerLocked()
	}
	return items
}

func (ep *defaultEventProcessor) stopTimerLocked() {
	ep.timerGen++
	if ep.timer != nil {
		ep.timer.Stop()
		ep.timer = nil
	}
}

func (ep *defaultEventProcessor) rearmTimerLocked() {
	ep.stopTimerLocked()
	if ep.config.FlushInterval <= 0 || ep.closed {
		return
	}
	gen := ep.timerGen
	ep.timer = time.AfterFunc(ep.config.FlushInterval, func() { ep.onTimer(gen) })
}

func (ep *defaultEventProcessor) onTimer(gen uint64) {
	ep.lock.Lock()
	defer ep.lock.Unlock()
	if gen != ep.timerGen {
		return // superseded by a later rearm or stop
	}
	ep.timer = nil
	if ep.tryDispatchLocked() {
		ep.publishQueueStateLocked()
	}
}

// tryDispatchLocked sends the next batch if a flush slot is free. Otherwise the messages stay queued,
// where MaxQueueCount and MaxQueueSize still apply, until a finishing dispatch picks them up.
func (ep *defaultEventProcessor) tryDispatchLocked() bool {
	if ep.queue.len() == 0 || !ep.flushSem.TryAcquire(1) {
		return false
	}
	ep.startDispatchLocked(ep.takeBatchLocked(), nil, true)
	return true
}

// startDispatchLocked hands items to a new goroutine. Without a slot, the goroutine waits for one; only
// explicit flushes do that.
func (ep *defaultEventProcessor) startDispatchLocked(items []queueItem, flushCallback Callback, acquired bool) {
	if len(items) == 0 {
		if acquired {
			ep.flushSem.Release(1)
		}
		return
	}
	if ep.inFlight == 0 {
		ep.idleCh = make(chan struct{})
	}
	ep.inFlight++
	ep.metrics.SetFlushesInFlight(ep.inFlight)
	go ep.dispatch(items, flushCallback, acquired)
}

func (ep *defaultEventProcessor) dispatch(items []queueItem, flushCallback Callback, acquired bool) {
	if !acquired {
		_ = ep.flushSem.Acquire(context.Background(), 1)
	}
	batch, err := ep.deliver(items)
	ep.flushSem.Release(1)

	for _, item := range items {
		ep.invokeCallback(item.callback, batch, err)
	}
	ep.invokeCallback(flushCallback, batch, err)
	ep.finishDispatch()
}

func (ep *defaultEventProcessor) finishDispatch() {
	ep.lock.Lock()
	defer ep.lock.Unlock()

	// Messages left queued while every slot was busy go out now rather than waiting for the timer.
	// This happens before inFlight is decremented so that idleCh is not replaced while still open.
	if ep.queue.len() > 0 {
		if ep.closed || ep.draining > 0 || ep.shouldFlushLocked() {
			ep.tryDispatchLocked()
		} else if ep.timer == nil {
			ep.rearmTimerLocked()
		}
		ep.publishQueueStateLocked()
	}
	ep.inFlight--
	ep.metrics.SetFlushesInFlight(ep.inFlight)
	if ep.inFlight == 0 {
		close(ep.idleCh)
	}
}

func (ep *defaultEventProcessor) deliver(items []queueItem) (*Batch, error) {
	ts := ep.now()
	batch := &Batch{
		Messages:  make([]map[string]interface{}, 0, len(items)),
		Timestamp: ts,
		SentAt:    ts,
	}

	w := jwriter.NewWriter()
	obj := w.Object()
	arr := obj.Name("batch").Array()
	for _, item := range items {
		w.Raw(item.data)
		batch.Messages = append(batch.Messages, item.message)
	}
	arr.End()
	obj.Name("timestamp").String(ts.Format(time.RFC3339Nano))
	obj.Name("sentAt").String(ts.Format(time.RFC3339Nano))
	obj.End()
	if err := w.Error(); err != nil {
		ep.loggers.Errorf("Unexpected error encoding batch: %s", err)
		return batch, errors.Wrap(err, "failed to encode batch")
	}
	payload := w.Bytes()

	if ep.loggers.IsDebugEnabled() {
		ep.loggers.Debugf("Sending %d messages: %s", len(items), payload)
	}

	started := time.Now()
	result := ep.sender.SendEventData(context.Background(), payload, len(items))
	if result.Success {
		ep.metrics.RecordBatch(metrics.ResultSuccess, len(items), time.Since(started))
		return batch, nil
	}
	ep.metrics.RecordBatch(metrics.ResultFailure, len(items), time.Since(started))
	err := result.Err
	if err == nil {
		err = errors.New("batch delivery failed")
	}
	ep.loggers.Errorf("Failed to deliver %d messages after %d attempt(s): %s", len(items), result.Attempts, err)
	return batch, err
}

func (ep *defaultEventProcessor) invokeCallback(callback Callback, batch *Batch, err error) {
	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ep.loggers.Errorf("Unexpected panic in message callback: %+v", r)
		}
	}()
	callback(batch, err)
}

func (ep *defaultEventProcessor) publishQueueStateLocked() {
	ep.metrics.SetQueueState(ep.queue.len(), ep.queue.bytes)
}
