package metrics

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/offboard/core/metrics"
)

// PromConfig configures the Prometheus sink. The CLI exits right after a
// dispatch, so metrics are pushed to a Pushgateway instead of scraped.
type PromConfig struct {
	PushURL string `json:"push_url"`
	Job     string `json:"job"`
}

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	cfg      PromConfig
	gatherer prometheus.Gatherer

	published   *prometheus.CounterVec
	modeEnable  *prometheus.CounterVec
	modeLatency prometheus.Histogram
	subscribers *prometheus.GaugeVec
	warnings    *prometheus.CounterVec
}

// NewPromSink registers metrics on a private registry.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	reg := prometheus.NewRegistry()
	return NewPromSinkWithRegistry(cfg, reg, reg)
}

// NewPromSinkWithRegistry registers metrics on reg and pushes what gatherer
// collects. Nil arguments default to the global Prometheus registry.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if cfg.Job == "" {
		cfg.Job = "offboard"
	}
	s := &PromSink{cfg: cfg, gatherer: gatherer}
	var err error
	if s.published, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offboard_setpoints_published_total",
		Help: "Setpoint dispatches by kind and publish outcome",
	}, []string{"kind", "published"})); err != nil {
		return nil, err
	}
	if s.modeEnable, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offboard_mode_enable_total",
		Help: "Guided-enable calls by outcome",
	}, []string{"success"})); err != nil {
		return nil, err
	}
	if s.modeLatency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "offboard_mode_enable_latency_seconds",
		Help:    "Time between the guided-enable request and its outcome",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.subscribers, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "offboard_subscriber_samples",
		Help: "Last sampled subscriber count per setpoint kind",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.warnings, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offboard_no_subscriber_warnings_total",
		Help: "Subscriber samples that found nobody listening",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register reuses an identical collector that is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDispatch counts the dispatch.
func (s *PromSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	s.published.WithLabelValues(ev.Kind, strconv.FormatBool(ev.Published)).Inc()
	return nil
}

// RecordModeEnable counts the call and observes its latency.
func (s *PromSink) RecordModeEnable(ev coremetrics.ModeEnableEvent) error {
	s.modeEnable.WithLabelValues(strconv.FormatBool(ev.Success)).Inc()
	s.modeLatency.Observe(ev.Latency.Seconds())
	return nil
}

// RecordSubscriberSample sets the gauge and counts empty samples.
func (s *PromSink) RecordSubscriberSample(sm coremetrics.SubscriberSample) error {
	s.subscribers.WithLabelValues(sm.Kind).Set(float64(sm.Count))
	if sm.Count == 0 {
		s.warnings.WithLabelValues(sm.Kind).Inc()
	}
	return nil
}

// Flush pushes the collected metrics to the Pushgateway when one is
// configured.
func (s *PromSink) Flush(ctx context.Context) error {
	if s.cfg.PushURL == "" {
		return nil
	}
	return push.New(s.cfg.PushURL, s.cfg.Job).Gatherer(s.gatherer).PushContext(ctx)
}
