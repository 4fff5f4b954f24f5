package dispatch

import (
	"time"

	"github.com/kilianp07/offboard/core/logger"
	"github.com/kilianp07/offboard/core/metrics"
	"github.com/kilianp07/offboard/core/monitoring"
	"github.com/kilianp07/offboard/core/mqtt"
)

// ModeEnabler requests guided mode from the flight controller.
type ModeEnabler struct {
	client  mqtt.ModeClient
	clock   Clock
	log     logger.Logger
	metrics metrics.MetricsSink
}

// NewModeEnabler wraps client. A nil clock uses the wall clock and a nil
// sink records nothing.
func NewModeEnabler(client mqtt.ModeClient, clock Clock, log logger.Logger, sink metrics.MetricsSink) *ModeEnabler {
	if clock == nil {
		clock = SystemClock{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &ModeEnabler{client: client, clock: clock, log: log, metrics: sink}
}

// Enable issues one guided-enable call. A failure is logged and reported to
// the monitor; the returned error is informational and callers carry on.
func (m *ModeEnabler) Enable() error {
	service := m.client.ServiceName()
	start := m.clock.Now()
	err := m.client.GuidedEnable(true)
	m.record(service, start, err)
	if err != nil {
		m.log.Errorf("guided enable via %s failed: %v", service, err)
		monitoring.CaptureException(err, map[string]string{"module": "mode", "service": service})
		return err
	}
	m.log.Infof("guided mode requested via %s", service)
	return nil
}

func (m *ModeEnabler) record(service string, start time.Time, err error) {
	rec, ok := m.metrics.(metrics.ModeEnableRecorder)
	if !ok {
		return
	}
	ev := metrics.ModeEnableEvent{
		Service: service,
		Success: err == nil,
		Latency: m.clock.Now().Sub(start),
		Time:    start,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if rerr := rec.RecordModeEnable(ev); rerr != nil {
		m.log.Errorf("record mode enable: %v", rerr)
	}
}
