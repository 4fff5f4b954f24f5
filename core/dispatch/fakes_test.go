package dispatch

import (
	"sync"
	"time"

	"github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/core/setpoint"
)

// callLog records the order of transport calls across fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(c string) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

func (l *callLog) count(c string) int {
	n := 0
	for _, x := range l.calls {
		if x == c {
			n++
		}
	}
	return n
}

type fakeChannel struct {
	topic      string
	log        *callLog
	publishErr error
	counts     []int
	published  []setpoint.Setpoint
	samples    int
}

func (f *fakeChannel) Topic() string { return f.topic }

func (f *fakeChannel) Publish(sp setpoint.Setpoint) error {
	f.log.add("publish")
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, sp)
	return nil
}

func (f *fakeChannel) SubscriberCount() int {
	f.samples++
	if len(f.counts) == 0 {
		return 0
	}
	n := f.counts[0]
	if len(f.counts) > 1 {
		f.counts = f.counts[1:]
	}
	return n
}

type fakeMode struct {
	log *callLog
	err error
}

func (f *fakeMode) ServiceName() string { return "mavros/cmd/guided_enable" }

func (f *fakeMode) GuidedEnable(value bool) error {
	if value {
		f.log.add("guided_enable")
	}
	return f.err
}

type fakeSession struct {
	log      *callLog
	channels map[setpoint.Kind]*fakeChannel
}

func newFakeSession(log *callLog) *fakeSession {
	s := &fakeSession{log: log, channels: map[setpoint.Kind]*fakeChannel{}}
	for _, k := range setpoint.Kinds {
		s.channels[k] = &fakeChannel{topic: mqtt.SetpointTopic("", k), log: log}
	}
	return s
}

func (s *fakeSession) Channel(kind setpoint.Kind) (mqtt.Channel, error) {
	ch, ok := s.channels[kind]
	if !ok {
		return nil, mqtt.ErrUnknownKind
	}
	return ch, nil
}

// fakeClock advances instantly on every After call.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	afters []time.Duration
	onTick func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.afters = append(c.afters, d)
	n := len(c.afters)
	now := c.now
	tick := c.onTick
	c.mu.Unlock()
	if tick != nil {
		tick(n)
	}
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}
