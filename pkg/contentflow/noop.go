package contentflow

import (
	"context"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful when nothing listens to lifecycle events, and in tests
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ContentCreated does nothing and returns nil
func (n *NoopEventSink) ContentCreated(ctx context.Context, content *Content) error {
	return nil
}

// ContentStatusChanged does nothing and returns nil
func (n *NoopEventSink) ContentStatusChanged(ctx context.Context, content *Content, from ContentStatus) error {
	return nil
}

// ContentDeleted does nothing and returns nil
func (n *NoopEventSink) ContentDeleted(ctx context.Context, contentID uuid.UUID) error {
	return nil
}

// DraftPromoted does nothing and returns nil
func (n *NoopEventSink) DraftPromoted(ctx context.Context, draftID uuid.UUID, content *Content) error {
	return nil
}

// MetricsRecorded does nothing and returns nil
func (n *NoopEventSink) MetricsRecorded(ctx context.Context, metrics *ContentMetrics) error {
	return nil
}

// MultiEventSink fans every event out to several sinks. All sinks are called;
// the first error is returned.
type MultiEventSink []EventSink

func (m MultiEventSink) each(fn func(EventSink) error) error {
	var first error
	for _, sink := range m {
		if err := fn(sink); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiEventSink) ContentCreated(ctx context.Context, content *Content) error {
	return m.each(func(s EventSink) error { return s.ContentCreated(ctx, content) })
}

func (m MultiEventSink) ContentStatusChanged(ctx context.Context, content *Content, from ContentStatus) error {
	return m.each(func(s EventSink) error { return s.ContentStatusChanged(ctx, content, from) })
}

func (m MultiEventSink) ContentDeleted(ctx context.Context, contentID uuid.UUID) error {
	return m.each(func(s EventSink) error { return s.ContentDeleted(ctx, contentID) })
}

func (m MultiEventSink) DraftPromoted(ctx context.Context, draftID uuid.UUID, content *Content) error {
	return m.each(func(s EventSink) error { return s.DraftPromoted(ctx, draftID, content) })
}

func (m MultiEventSink) MetricsRecorded(ctx context.Context, metrics *ContentMetrics) error {
	return m.each(func(s EventSink) error { return s.MetricsRecorded(ctx, metrics) })
}
