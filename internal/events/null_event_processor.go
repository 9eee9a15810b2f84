package events

import "context"

type nullEventProcessor struct{}

// NewNullEventProcessor creates a no-op implementation of EventProcessor. Every callback is invoked
// immediately with a nil batch and a nil error.
func NewNullEventProcessor() EventProcessor {
	return nullEventProcessor{}
}

func (n nullEventProcessor) SendEvent(message map[string]interface{}, callback Callback) error {
	if callback != nil {
		callback(nil, nil)
	}
	return nil
}

func (n nullEventProcessor) Flush(callback Callback) {
	if callback != nil {
		callback(nil, nil)
	}
}

func (n nullEventProcessor) Drain(ctx context.Context) error {
	return nil
}

func (n nullEventProcessor) Close() error {
	return nil
}
