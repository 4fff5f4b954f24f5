package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/offboard/core/logger"
	"github.com/kilianp07/offboard/core/metrics"
	"github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/core/setpoint"
)

// Report describes the outcome of one dispatch.
type Report struct {
	Kind        setpoint.Kind
	Topic       string
	Setpoint    setpoint.Setpoint
	Published   bool
	ModeEnabled bool
	ModeErr     error
	// Samples is the number of subscriber samples taken while waiting.
	Samples        int
	MaxSubscribers int
	// Warnings counts the samples that found nobody listening.
	Warnings    int
	Interrupted bool
	Started     time.Time
	Finished    time.Time
}

// Confirmer publishes a setpoint, requests guided mode and waits a bounded
// time for subscribers.
type Confirmer struct {
	mode    *ModeEnabler
	clock   Clock
	settle  time.Duration
	grace   time.Duration
	poll    time.Duration
	log     logger.Logger
	metrics metrics.MetricsSink
}

// NewConfirmer creates a Confirmer using the timings of cfg. A nil clock uses
// the wall clock and a nil sink records nothing.
func NewConfirmer(mode *ModeEnabler, cfg Config, clock Clock, log logger.Logger, sink metrics.MetricsSink) *Confirmer {
	if clock == nil {
		clock = SystemClock{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Confirmer{
		mode:    mode,
		clock:   clock,
		settle:  cfg.Settle(),
		grace:   cfg.Grace(),
		poll:    cfg.Poll(),
		log:     log,
		metrics: sink,
	}
}

// Confirm publishes sp on ch, pauses for the settle delay, requests guided
// mode and then samples the subscriber count every poll interval until the
// grace period ends or ctx is done.
//
// Only a publish failure is returned; the mode request is not attempted in
// that case. A mode failure is recorded in the report.
func (c *Confirmer) Confirm(ctx context.Context, ch mqtt.Channel, sp setpoint.Setpoint) (Report, error) {
	topic := ch.Topic()
	rep := Report{Kind: sp.Kind(), Topic: topic, Setpoint: sp, Started: c.clock.Now()}

	if err := ch.Publish(sp); err != nil {
		rep.Finished = c.clock.Now()
		c.log.Errorf("publish on %s failed: %v", topic, err)
		return rep, fmt.Errorf("%w on %s: %w", mqtt.ErrPublish, topic, err)
	}
	rep.Published = true
	c.log.Infof("published %s setpoint on %s (retained)", sp.Kind(), topic)

	// The setpoint must be available before the controller is told to use it.
	<-c.clock.After(c.settle)

	rep.ModeErr = c.mode.Enable()
	rep.ModeEnabled = rep.ModeErr == nil

	c.wait(ctx, ch, &rep)
	rep.Finished = c.clock.Now()
	return rep, nil
}

func (c *Confirmer) wait(ctx context.Context, ch mqtt.Channel, rep *Report) {
	deadline := c.clock.Now().Add(c.grace)
	for c.clock.Now().Before(deadline) {
		if ctx.Err() != nil {
			rep.Interrupted = true
			break
		}
		select {
		case <-ctx.Done():
			rep.Interrupted = true
		case <-c.clock.After(c.poll):
		}
		if rep.Interrupted {
			break
		}
		n := ch.SubscriberCount()
		rep.Samples++
		c.recordSample(rep, n)
		if n > rep.MaxSubscribers {
			rep.MaxSubscribers = n
		}
		if n == 0 {
			rep.Warnings++
			c.log.Warnf("no subscribers connected to %s", rep.Topic)
		}
	}
	if rep.Interrupted {
		c.log.Infof("stopped waiting for subscribers on %s", rep.Topic)
		return
	}
	c.log.Debugw("subscriber wait finished", map[string]any{
		"topic":           rep.Topic,
		"samples":         rep.Samples,
		"max_subscribers": rep.MaxSubscribers,
	})
}

func (c *Confirmer) recordSample(rep *Report, n int) {
	rec, ok := c.metrics.(metrics.SubscriberRecorder)
	if !ok {
		return
	}
	s := metrics.SubscriberSample{Kind: rep.Kind.String(), Topic: rep.Topic, Count: n, Time: c.clock.Now()}
	if err := rec.RecordSubscriberSample(s); err != nil {
		c.log.Errorf("record subscriber sample: %v", err)
	}
}
