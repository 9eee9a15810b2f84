package analytics

import (
	"github.com/ingestkit/go-analytics-sdk/internal/events"
	"github.com/ingestkit/go-analytics-sdk/internal/validation"
)

// Message is a caller-supplied analytics message. The client never modifies it; it sends an enriched
// copy.
type Message = map[string]interface{}

// Kind is the type of an analytics message, which is sent as the "type" field.
type Kind string

const (
	KindIdentify Kind = validation.KindIdentify
	KindGroup    Kind = validation.KindGroup
	KindTrack    Kind = validation.KindTrack
	KindPage     Kind = validation.KindPage
	KindScreen   Kind = validation.KindScreen
	KindAlias    Kind = validation.KindAlias
)

// Batch is one request to the ingestion API. Every message in it receives the same *Batch in its
// callback.
type Batch = events.Batch

// Callback receives the outcome of a message or a flush. The batch is nil if nothing was sent.
//
// Callbacks run on a client goroutine and must not block for long. A panic in a callback is recovered
// and logged.
type Callback = events.Callback
