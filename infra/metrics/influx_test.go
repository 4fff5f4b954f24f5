package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/offboard/core/metrics"
)

func newLineServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordDispatch(t *testing.T) {
	srv, bodies := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	now := time.Now()
	ev := coremetrics.DispatchEvent{
		Kind:           "velocity",
		Topic:          "mavros/setpoint/cmd_vel",
		Published:      true,
		ModeEnabled:    false,
		MaxSubscribers: 2,
		Warnings:       3,
		Duration:       1500 * time.Millisecond,
		Time:           now,
	}
	if err := sink.RecordDispatch(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	got := bodies()
	if len(got) != 1 {
		t.Fatalf("expected one write, got %d", len(got))
	}
	line := got[0]
	for _, want := range []string{
		"setpoint_dispatch,",
		"kind=velocity",
		"mode_enabled=false",
		"published=true",
		"max_subscribers=2i",
		"warnings=3i",
		"duration_ms=1500",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestInfluxSink_RecordModeEnable(t *testing.T) {
	srv, bodies := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Org: "org", Bucket: "bucket"})
	err := sink.RecordModeEnable(coremetrics.ModeEnableEvent{
		Service: "mavros/cmd/guided_enable",
		Success: false,
		Error:   "rpc timeout",
		Latency: 5 * time.Second,
		Time:    time.Now(),
	})
	if err != nil {
		t.Fatalf("record error: %v", err)
	}
	line := bodies()[0]
	if !strings.HasPrefix(line, "mode_enable,") || !strings.Contains(line, `error="rpc timeout"`) || !strings.Contains(line, "success=false") {
		t.Errorf("unexpected line %q", line)
	}
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestInfluxSink_RecordSubscriberSample(t *testing.T) {
	srv, bodies := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	if err := sink.RecordSubscriberSample(coremetrics.SubscriberSample{Kind: "position", Topic: "t", Count: 0, Time: time.Now()}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if line := bodies()[0]; !strings.Contains(line, "subscriber_sample,") || !strings.Contains(line, "count=0i") {
		t.Errorf("unexpected line %q", line)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
