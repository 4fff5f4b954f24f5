// Package metrics defines the sinks that observe setpoint dispatches. A sink
// must implement MetricsSink; it may also implement ModeEnableRecorder,
// SubscriberRecorder or Flusher to receive finer grained events. Sinks are
// built from configuration through the factory registry and combined with
// NewMultiSink when several are configured.
package metrics
