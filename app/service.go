package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/offboard/config"
	"github.com/kilianp07/offboard/core/dispatch"
	"github.com/kilianp07/offboard/core/dispatch/logging"
	coremetrics "github.com/kilianp07/offboard/core/metrics"
	coremon "github.com/kilianp07/offboard/core/monitoring"
	coremqtt "github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/core/setpoint"
	"github.com/kilianp07/offboard/infra/logger"
	_ "github.com/kilianp07/offboard/infra/metrics"
	"github.com/kilianp07/offboard/infra/monitoring"
	"github.com/kilianp07/offboard/infra/mqtt"
)

// Connect opens the transport session. Tests replace it.
var Connect = func(cfg *config.Config) (coremqtt.Session, error) {
	return mqtt.NewSession(cfg.MQTT, cfg.Namespace)
}

// Service wires the dispatcher to its transport and observability backends.
type Service struct {
	Dispatcher *dispatch.Dispatcher
	session    coremqtt.Session
	sink       coremetrics.MetricsSink
	store      logging.LogStore
	log        logger.Logger
}

// InitMonitoring installs the configured error monitor process-wide.
func InitMonitoring(cfg config.SentryConfig) error {
	mon, err := monitoring.NewSentryMonitor(cfg)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	return nil
}

// New opens the session and builds a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := logging.NewStore(cfg.Audit)
	if err != nil {
		return nil, err
	}
	sess, err := Connect(cfg)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("mqtt session: %w", err)
	}

	clock := dispatch.SystemClock{}
	builder := setpoint.NewBuilder(cfg.Setpoint.FrameID)
	mode := dispatch.NewModeEnabler(sess, clock, logger.New("mode"), sink)
	confirmer := dispatch.NewConfirmer(mode, cfg.Setpoint, clock, logger.New("confirm"), sink)
	d := dispatch.NewDispatcher(builder, sess, confirmer, logger.New("dispatch"))
	d.SetMetrics(sink)
	if store != nil {
		d.SetLogStore(store)
	}
	return &Service{Dispatcher: d, session: sess, sink: sink, store: store, log: log}, nil
}

// Dispatch publishes the selected setpoint and waits for subscribers.
func (s *Service) Dispatch(ctx context.Context, sel setpoint.Selection) (dispatch.Report, error) {
	return s.Dispatcher.Dispatch(ctx, sel)
}

// Close flushes metrics and releases the store and the session.
func (s *Service) Close() error {
	var errs []error
	if f, ok := s.sink.(coremetrics.Flusher); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := f.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush metrics: %w", err))
		}
		cancel()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	s.session.Close()
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
