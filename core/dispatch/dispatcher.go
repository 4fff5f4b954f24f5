package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kilianp07/offboard/core/dispatch/logging"
	"github.com/kilianp07/offboard/core/logger"
	"github.com/kilianp07/offboard/core/metrics"
	"github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/core/setpoint"
)

// ChannelProvider resolves the publisher handle of a setpoint variant.
type ChannelProvider interface {
	Channel(kind setpoint.Kind) (mqtt.Channel, error)
}

// Dispatcher routes a Selection to the builder and the confirmer.
type Dispatcher struct {
	builder   *setpoint.Builder
	channels  ChannelProvider
	confirmer *Confirmer
	log       logger.Logger
	metrics   metrics.MetricsSink
	store     logging.LogStore
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(builder *setpoint.Builder, channels ChannelProvider, confirmer *Confirmer, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		builder:   builder,
		channels:  channels,
		confirmer: confirmer,
		log:       log,
		metrics:   metrics.NopSink{},
	}
}

// SetMetrics configures the sink receiving dispatch events.
func (d *Dispatcher) SetMetrics(sink metrics.MetricsSink) {
	if sink != nil {
		d.metrics = sink
	}
}

// SetLogStore configures the store used to persist dispatch history.
func (d *Dispatcher) SetLogStore(store logging.LogStore) {
	d.store = store
}

// Dispatch builds the first populated variant of sel (position, then
// velocity, then acceleration) and confirms it on the variant's channel.
// Upstream validation guarantees only one is populated.
func (d *Dispatcher) Dispatch(ctx context.Context, sel setpoint.Selection) (Report, error) {
	sp, err := sel.Build(d.builder)
	if err != nil {
		return Report{}, err
	}
	ch, err := d.channels.Channel(sp.Kind())
	if err != nil {
		return Report{Kind: sp.Kind(), Setpoint: sp}, fmt.Errorf("channel for %s: %w", sp.Kind(), err)
	}
	d.log.Debugw("setpoint built", map[string]any{
		"kind":     sp.Kind().String(),
		"topic":    ch.Topic(),
		"frame_id": sp.Envelope().FrameID,
	})

	rep, err := d.confirmer.Confirm(ctx, ch, sp)
	d.record(ctx, rep, err)
	return rep, err
}

func (d *Dispatcher) record(ctx context.Context, rep Report, dispatchErr error) {
	ev := metrics.DispatchEvent{
		Kind:           rep.Kind.String(),
		Topic:          rep.Topic,
		Published:      rep.Published,
		ModeEnabled:    rep.ModeEnabled,
		MaxSubscribers: rep.MaxSubscribers,
		Warnings:       rep.Warnings,
		Interrupted:    rep.Interrupted,
		Duration:       rep.Finished.Sub(rep.Started),
		Time:           rep.Started,
	}
	if err := d.metrics.RecordDispatch(ev); err != nil {
		d.log.Errorf("record dispatch: %v", err)
	}
	if d.store == nil {
		return
	}
	rec := logging.LogRecord{
		Timestamp:      rep.Started,
		Kind:           rep.Kind.String(),
		Topic:          rep.Topic,
		Published:      rep.Published,
		ModeEnabled:    rep.ModeEnabled,
		MaxSubscribers: rep.MaxSubscribers,
		Warnings:       rep.Warnings,
		Interrupted:    rep.Interrupted,
	}
	if rep.Setpoint != nil {
		rec.FrameID = rep.Setpoint.Envelope().FrameID
		if raw, err := json.Marshal(rep.Setpoint); err == nil {
			rec.Setpoint = raw
		}
	}
	if rep.ModeErr != nil {
		rec.ModeError = rep.ModeErr.Error()
	}
	if dispatchErr != nil {
		rec.Error = dispatchErr.Error()
	}
	// The dispatch context may already be cancelled; history is still written.
	if err := d.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		d.log.Errorf("append dispatch log: %v", err)
	}
}
