package metrics

import (
	"context"
	"errors"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatch forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDispatch(ev DispatchEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordModeEnable forwards mode-enable events.
func (m *MultiSink) RecordModeEnable(ev ModeEnableEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ModeEnableRecorder); ok {
			if err := rec.RecordModeEnable(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSubscriberSample forwards subscriber samples.
func (m *MultiSink) RecordSubscriberSample(sm SubscriberSample) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SubscriberRecorder); ok {
			if err := rec.RecordSubscriberSample(sm); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every sink that buffers. All sinks are flushed even if one fails.
func (m *MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
