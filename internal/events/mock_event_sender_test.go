package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	th "github.com/launchdarkly/go-test-helpers/v3"
)

type capturedPayload struct {
	Batch     []map[string]interface{} `json:"batch"`
	Timestamp string                   `json:"timestamp"`
	SentAt    string                   `json:"sentAt"`
}

type mockEventSender struct {
	payloadsCh   chan capturedPayload
	payloadCount int
	result       EventSenderResult
	gateCh       <-chan struct{}
	waitingCh    chan<- struct{}
	lock         sync.Mutex
}

func newMockEventSender() *mockEventSender {
	return &mockEventSender{
		payloadsCh: make(chan capturedPayload, 100),
		result:     EventSenderResult{Success: true, Attempts: 1},
	}
}

func (ms *mockEventSender) SendEventData(ctx context.Context, data []byte, eventCount int) EventSenderResult {
	var payload capturedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		panic(err)
	}
	if len(payload.Batch) != eventCount {
		panic("event count does not match payload")
	}

	ms.lock.Lock()
	ms.payloadCount++
	gateCh, waitingCh := ms.gateCh, ms.waitingCh
	result := ms.result
	ms.lock.Unlock()

	ms.payloadsCh <- payload

	if gateCh != nil {
		// used by tests that need a batch to stay in flight
		waitingCh <- struct{}{}
		<-gateCh
	}
	return result
}

func (ms *mockEventSender) setGate(gateCh <-chan struct{}, waitingCh chan<- struct{}) {
	ms.lock.Lock()
	ms.gateCh = gateCh
	ms.waitingCh = waitingCh
	ms.lock.Unlock()
}

func (ms *mockEventSender) setResult(result EventSenderResult) {
	ms.lock.Lock()
	ms.result = result
	ms.lock.Unlock()
}

func (ms *mockEventSender) getPayloadCount() int {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	return ms.payloadCount
}

func (ms *mockEventSender) awaitPayload(t *testing.T) capturedPayload {
	var ch <-chan capturedPayload = ms.payloadsCh
	return th.RequireValue(t, ch, time.Second, "timed out waiting for batch payload")
}

func (ms *mockEventSender) assertNoMorePayloads(t *testing.T, timeout time.Duration) {
	var ch <-chan capturedPayload = ms.payloadsCh
	th.AssertNoMoreValues(t, ch, timeout)
}

// gateSender makes every SendEventData call signal waitingCh and then block until gateCh is closed.
func gateSender(ms *mockEventSender) (chan struct{}, <-chan struct{}) {
	gateCh := make(chan struct{})
	waitingCh := make(chan struct{}, 10)
	ms.setGate(gateCh, waitingCh)
	return gateCh, waitingCh
}

type callbackResult struct {
	batch *Batch
	err   error
}

func recordingCallback() (Callback, <-chan callbackResult) {
	ch := make(chan callbackResult, 100)
	return func(batch *Batch, err error) {
		ch <- callbackResult{batch: batch, err: err}
	}, ch
}
