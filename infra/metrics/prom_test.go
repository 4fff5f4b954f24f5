package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/offboard/core/factory"
	coremetrics "github.com/kilianp07/offboard/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	sink, err := NewPromSink(PromConfig{})
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	_ = sink.RecordDispatch(coremetrics.DispatchEvent{Kind: "position", Published: true})
	_ = sink.RecordDispatch(coremetrics.DispatchEvent{Kind: "position", Published: true})
	_ = sink.RecordModeEnable(coremetrics.ModeEnableEvent{Success: false, Latency: time.Second})
	_ = sink.RecordSubscriberSample(coremetrics.SubscriberSample{Kind: "position", Count: 0})
	_ = sink.RecordSubscriberSample(coremetrics.SubscriberSample{Kind: "position", Count: 2})

	if v := testutil.ToFloat64(sink.published.WithLabelValues("position", "true")); v != 2 {
		t.Fatalf("expected 2 dispatches, got %v", v)
	}
	if v := testutil.ToFloat64(sink.modeEnable.WithLabelValues("false")); v != 1 {
		t.Fatalf("expected 1 failed mode enable, got %v", v)
	}
	if v := testutil.ToFloat64(sink.subscribers.WithLabelValues("position")); v != 2 {
		t.Fatalf("gauge should hold the last sample, got %v", v)
	}
	if v := testutil.ToFloat64(sink.warnings.WithLabelValues("position")); v != 1 {
		t.Fatalf("expected 1 warning, got %v", v)
	}
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(PromConfig{}, reg, reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	b, err := NewPromSinkWithRegistry(PromConfig{}, reg, reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	_ = a.RecordDispatch(coremetrics.DispatchEvent{Kind: "accel", Published: false})
	if v := testutil.ToFloat64(b.published.WithLabelValues("accel", "false")); v != 1 {
		t.Fatalf("collectors not shared, got %v", v)
	}
}

func TestPromSinkFlushPushes(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewPromSink(PromConfig{PushURL: srv.URL})
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	_ = sink.RecordDispatch(coremetrics.DispatchEvent{Kind: "velocity", Published: true})
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if method != http.MethodPut || path != "/metrics/job/offboard" {
		t.Fatalf("unexpected push %s %s", method, path)
	}
}

func TestFlushWithoutGateway(t *testing.T) {
	sink, _ := NewPromSink(PromConfig{})
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("flush without push url: %v", err)
	}
}

func TestFactoryBuildsSinks(t *testing.T) {
	sink, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{
		{Type: "prometheus", Conf: map[string]any{"job": "ci"}},
		{Type: "nop"},
	})
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	multi, ok := sink.(*coremetrics.MultiSink)
	if !ok || len(multi.Sinks) != 2 {
		t.Fatalf("expected multi sink, got %T", sink)
	}
	prom, ok := multi.Sinks[0].(*PromSink)
	if !ok || prom.cfg.Job != "ci" {
		t.Fatalf("unexpected first sink %T", multi.Sinks[0])
	}
	if _, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "statsd"}}); err == nil {
		t.Fatalf("expected unknown sink error")
	}
}
