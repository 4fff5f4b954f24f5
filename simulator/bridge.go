package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/core/setpoint"
	"github.com/kilianp07/offboard/infra/logger"
	inframqtt "github.com/kilianp07/offboard/infra/mqtt"
	"github.com/kilianp07/offboard/internal/eventbus"
)

var newMQTTClient = func(opts *paho.ClientOptions) paho.Client {
	return paho.NewClient(opts)
}

// EventType distinguishes bridge events.
type EventType string

const (
	EventSetpoint EventType = "setpoint"
	EventMode     EventType = "mode"
)

// Event is emitted for every setpoint received and every guided-enable
// request handled.
type Event struct {
	Type     EventType
	Topic    string
	Setpoint setpoint.Setpoint
	// Retained is set when the setpoint was stored before the bridge joined.
	Retained  bool
	RequestID string
	Accepted  bool
	Dropped   bool
	Time      time.Time
}

// Bridge is a simulated flight-controller bridge.
type Bridge struct {
	cfg      Config
	strategy ReplyStrategy
	codec    inframqtt.Codec
	bus      *eventbus.TypedBus[Event]
	log      logger.Logger

	client   paho.Client
	requests chan coremqtt.GuidedEnableRequest
	guided   atomic.Bool

	mu   sync.Mutex
	last map[setpoint.Kind]setpoint.Setpoint
}

// NewBridge creates a Bridge. A nil strategy accepts every request.
func NewBridge(cfg Config, strategy ReplyStrategy) (*Bridge, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := inframqtt.NewCodec(cfg.MQTT.Encoding)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		strategy = Accept{}
	}
	return &Bridge{
		cfg:      cfg,
		strategy: strategy,
		codec:    codec,
		bus:      eventbus.NewTyped[Event](0),
		log:      logger.New("bridge_sim"),
		requests: make(chan coremqtt.GuidedEnableRequest, 16),
		last:     make(map[setpoint.Kind]setpoint.Setpoint),
	}, nil
}

// Subscribe returns a channel receiving bridge events. It is closed when
// Run returns.
func (b *Bridge) Subscribe() <-chan Event { return b.bus.Subscribe() }

// GuidedMode reports whether a guided-enable request was accepted.
func (b *Bridge) GuidedMode() bool { return b.guided.Load() }

// Last returns the most recent setpoint received for kind.
func (b *Bridge) Last(kind setpoint.Kind) (setpoint.Setpoint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sp, ok := b.last[kind]
	return sp, ok
}

// Run connects to the broker, advertises presence and serves until ctx is
// done. The presence document is cleared on a clean exit; the broker clears
// it through the will message otherwise.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.bus.Close()
	opts, err := inframqtt.NewClientOptions(b.cfg.mqttConfig())
	if err != nil {
		return err
	}
	opts.OnConnect = func(c paho.Client) {
		if err := b.register(c); err != nil {
			b.log.Errorf("register bridge: %v", err)
		}
	}
	cli := newMQTTClient(opts)
	b.client = cli
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect %s: %w", b.cfg.MQTT.Broker, token.Error())
	}
	b.log.Infof("bridge %s listening on %v", b.cfg.ClientID, b.cfg.Channels)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.worker(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	presence := coremqtt.PresenceTopic(b.cfg.Namespace, b.cfg.ClientID)
	if token := cli.Publish(presence, b.cfg.MQTT.ClassQoS("presence"), true, []byte{}); token.WaitTimeout(2*time.Second) && token.Error() != nil {
		b.log.Warnf("clear presence: %v", token.Error())
	}
	cli.Disconnect(250)
	return nil
}

func (b *Bridge) register(c paho.Client) error {
	for _, name := range b.cfg.Channels {
		kind, _ := setpoint.ParseKind(name)
		topic := coremqtt.SetpointTopic(b.cfg.Namespace, kind)
		if token := c.Subscribe(topic, b.cfg.MQTT.ClassQoS("setpoint"), b.onSetpoint(kind)); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}
	cmd := coremqtt.GuidedEnableTopic(b.cfg.Namespace)
	if token := c.Subscribe(cmd, b.cfg.MQTT.ClassQoS("command"), b.onRequest); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", cmd, token.Error())
	}
	doc, err := json.Marshal(coremqtt.Presence{ClientID: b.cfg.ClientID, Channels: b.cfg.Channels})
	if err != nil {
		return err
	}
	presence := coremqtt.PresenceTopic(b.cfg.Namespace, b.cfg.ClientID)
	if token := c.Publish(presence, b.cfg.MQTT.ClassQoS("presence"), true, doc); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish presence: %w", token.Error())
	}
	return nil
}

func (b *Bridge) onSetpoint(kind setpoint.Kind) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		if len(msg.Payload()) == 0 {
			return
		}
		sp, err := decodeSetpoint(b.codec, kind, msg.Payload())
		if err != nil {
			b.log.Errorf("decode %s: %v", msg.Topic(), err)
			return
		}
		b.mu.Lock()
		b.last[kind] = sp
		b.mu.Unlock()
		b.log.Infof("received %s setpoint on %s", kind, msg.Topic())
		b.bus.Publish(Event{
			Type:     EventSetpoint,
			Topic:    msg.Topic(),
			Setpoint: sp,
			Retained: msg.Retained(),
			Time:     time.Now(),
		})
	}
}

func (b *Bridge) onRequest(_ paho.Client, msg paho.Message) {
	var req coremqtt.GuidedEnableRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		b.log.Errorf("decode guided enable request: %v", err)
		return
	}
	select {
	case b.requests <- req:
	default:
		b.log.Warnf("request queue full, dropping %s", req.RequestID)
	}
}

func (b *Bridge) worker(ctx context.Context) {
	for {
		select {
		case req := <-b.requests:
			b.handle(ctx, req)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) handle(ctx context.Context, req coremqtt.GuidedEnableRequest) {
	rep, send := b.strategy.Reply(req)
	ev := Event{Type: EventMode, Topic: coremqtt.GuidedEnableTopic(b.cfg.Namespace), RequestID: req.RequestID}
	if !send {
		b.log.Infof("dropping guided enable request %s", req.RequestID)
		ev.Dropped = true
		ev.Time = time.Now()
		b.bus.Publish(ev)
		return
	}
	if b.cfg.ReplyDelay > 0 {
		select {
		case <-time.After(b.cfg.ReplyDelay):
		case <-ctx.Done():
			return
		}
	}
	if rep.Success {
		b.guided.Store(req.Value)
	}
	if err := b.reply(req, rep); err != nil {
		b.log.Errorf("reply to %s: %v", req.RequestID, err)
	}
	b.log.Infof("guided enable %s: success=%t", req.RequestID, rep.Success)
	ev.Accepted = rep.Success
	ev.Time = time.Now()
	b.bus.Publish(ev)
}

func (b *Bridge) reply(req coremqtt.GuidedEnableRequest, rep coremqtt.GuidedEnableReply) error {
	if req.ReplyTo == "" || !strings.HasPrefix(req.ReplyTo, coremqtt.GuidedEnableTopic(b.cfg.Namespace)+"/reply/") {
		return fmt.Errorf("invalid reply topic %q", req.ReplyTo)
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	token := b.client.Publish(req.ReplyTo, b.cfg.MQTT.ClassQoS("reply"), false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("reply publish timeout")
	}
	return token.Error()
}

func decodeSetpoint(codec inframqtt.Codec, kind setpoint.Kind, data []byte) (setpoint.Setpoint, error) {
	switch kind {
	case setpoint.KindPosition:
		var sp setpoint.PositionTarget
		err := codec.Unmarshal(data, &sp)
		return sp, err
	case setpoint.KindVelocity:
		var sp setpoint.VelocityTarget
		err := codec.Unmarshal(data, &sp)
		return sp, err
	case setpoint.KindAcceleration:
		var sp setpoint.AccelTarget
		err := codec.Unmarshal(data, &sp)
		return sp, err
	}
	return nil, fmt.Errorf("%w: %d", coremqtt.ErrUnknownKind, kind)
}
