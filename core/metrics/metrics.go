package metrics

import (
	"context"
	"time"
)

// DispatchEvent summarises one setpoint dispatch.
type DispatchEvent struct {
	Kind        string
	Topic       string
	Published   bool
	ModeEnabled bool
	// MaxSubscribers is the highest subscriber count sampled while waiting.
	MaxSubscribers int
	// Warnings counts the samples that found no subscriber.
	Warnings    int
	Interrupted bool
	Duration    time.Duration
	Time        time.Time
}

// MetricsSink records dispatch results for observability purposes.
type MetricsSink interface {
	RecordDispatch(ev DispatchEvent) error
}

// ModeEnableEvent captures the outcome of a guided-enable call.
type ModeEnableEvent struct {
	Service string
	Success bool
	Error   string
	Latency time.Duration
	Time    time.Time
}

// ModeEnableRecorder records mode-enable calls.
type ModeEnableRecorder interface {
	RecordModeEnable(ev ModeEnableEvent) error
}

// SubscriberSample is one sample of a channel's subscriber count.
type SubscriberSample struct {
	Kind  string
	Topic string
	Count int
	Time  time.Time
}

// SubscriberRecorder records subscriber samples.
type SubscriberRecorder interface {
	RecordSubscriberSample(s SubscriberSample) error
}

// Flusher is implemented by sinks that buffer and must push before exit.
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatch(DispatchEvent) error            { return nil }
func (NopSink) RecordModeEnable(ModeEnableEvent) error        { return nil }
func (NopSink) RecordSubscriberSample(SubscriberSample) error { return nil }
func (NopSink) Flush(context.Context) error                   { return nil }
