package eventbus

import "testing"

type sample struct {
	topic string
	n     int
}

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[sample](0)
	a := bus.Subscribe()
	b := bus.Subscribe()
	if bus.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers got %d", bus.Subscribers())
	}
	bus.Publish(sample{"mavros/setpoint/accel", 1})
	if v := <-a; v.n != 1 {
		t.Fatalf("unexpected event %+v", v)
	}
	if v := <-b; v.topic != "mavros/setpoint/accel" {
		t.Fatalf("unexpected event %+v", v)
	}
	bus.Unsubscribe(a)
	if _, ok := <-a; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
	if bus.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber got %d", bus.Subscribers())
	}
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTyped[int](1)
	ch := bus.Subscribe()
	bus.Publish(1)
	bus.Publish(2)
	if v := <-ch; v != 1 {
		t.Fatalf("expected first event, got %d", v)
	}
	if bus.Dropped() != 1 {
		t.Fatalf("expected 1 dropped event, got %d", bus.Dropped())
	}
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int](0)
	ch := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	bus.Publish(1)
	bus.Close()
	if _, ok := <-bus.Subscribe(); ok {
		t.Fatalf("subscribe after close must return a closed channel")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
