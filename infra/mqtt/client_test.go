package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	coremqtt "github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/core/setpoint"
)

func newTestSession(t *testing.T, mc *mockClient, cfg Config) *Session {
	t.Helper()
	useMock(t, mc)
	if cfg.Broker == "" {
		cfg.Broker = "tcp://localhost:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "tester"
	}
	s, err := NewSession(cfg, "")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return s
}

// replyWith answers every guided-enable request using rep.
func replyWith(mc *mockClient, rep coremqtt.GuidedEnableReply) {
	mc.onPublish = func(topic string, payload []byte) {
		if topic != coremqtt.GuidedEnableTopic("") {
			return
		}
		var req coremqtt.GuidedEnableRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		rep.RequestID = req.RequestID
		b, _ := json.Marshal(rep)
		mc.deliver(req.ReplyTo, b)
	}
}

func TestSessionSubscribesOnConnect(t *testing.T) {
	mc := &mockClient{}
	newTestSession(t, mc, Config{QoS: map[string]byte{"reply": 2, "presence": 0}})
	if len(mc.subscribed) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(mc.subscribed))
	}
	if mc.subscribed[0].topic != "mavros/cmd/guided_enable/reply/tester" || mc.subscribed[0].qos != 2 {
		t.Fatalf("unexpected reply subscription %+v", mc.subscribed[0])
	}
	if mc.subscribed[1].topic != "mavros/setpoint/subscribers/+" || mc.subscribed[1].qos != 0 {
		t.Fatalf("unexpected presence subscription %+v", mc.subscribed[1])
	}
}

func TestSessionConnectError(t *testing.T) {
	mc := &mockClient{connectErr: fmt.Errorf("refused")}
	useMock(t, mc)
	if _, err := NewSession(Config{Broker: "tcp://localhost:1883"}, "uav1"); err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestChannelPublishRetained(t *testing.T) {
	mc := &mockClient{}
	s := newTestSession(t, mc, Config{QoS: map[string]byte{"setpoint": 2}})
	ch, err := s.Channel(setpoint.KindVelocity)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if ch.Topic() != "mavros/setpoint/cmd_vel" {
		t.Fatalf("unexpected topic %s", ch.Topic())
	}
	sp := setpoint.NewBuilder("").Velocity(0, 0, -1, 0.5)
	if err := ch.Publish(sp); err != nil {
		t.Fatalf("publish: %v", err)
	}
	pubs := mc.publishedOn("mavros/setpoint/cmd_vel")
	if len(pubs) != 1 {
		t.Fatalf("expected one publish, got %d", len(pubs))
	}
	if !pubs[0].retained || pubs[0].qos != 2 {
		t.Fatalf("setpoint must be retained with configured qos: %+v", pubs[0])
	}
	var got setpoint.VelocityTarget
	if err := json.Unmarshal(pubs[0].payload, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Twist.Linear.Z != -1 || got.Twist.Angular.Z != 0.5 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestChannelRejectsOtherKind(t *testing.T) {
	mc := &mockClient{}
	s := newTestSession(t, mc, Config{})
	ch, _ := s.Channel(setpoint.KindAcceleration)
	if err := ch.Publish(setpoint.NewBuilder("").Velocity(0, 0, 0, 0)); err == nil {
		t.Fatalf("expected kind mismatch error")
	}
	if len(mc.published) != 0 {
		t.Fatalf("nothing should be published")
	}
}

func TestUnknownChannel(t *testing.T) {
	s := newTestSession(t, &mockClient{}, Config{})
	if _, err := s.Channel(setpoint.Kind(42)); !errors.Is(err, coremqtt.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	s := newTestSession(t, mc, Config{MaxRetries: 1, BackoffMS: 1})
	ch, _ := s.Channel(setpoint.KindAcceleration)
	if err := ch.Publish(setpoint.NewBuilder("").Acceleration(0, 0, 9.8)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries, got %d publishes", len(mc.published))
	}
}

func TestPresenceCounting(t *testing.T) {
	mc := &mockClient{}
	s := newTestSession(t, mc, Config{})
	pos, _ := s.Channel(setpoint.KindPosition)
	vel, _ := s.Channel(setpoint.KindVelocity)
	if pos.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers")
	}

	mc.deliver("mavros/setpoint/subscribers/a", []byte(`{"client_id":"a","channels":["local_position","cmd_vel"]}`))
	mc.deliver("mavros/setpoint/subscribers/b", []byte(`{"client_id":"b","channels":["local_position"]}`))
	if pos.SubscriberCount() != 2 || vel.SubscriberCount() != 1 {
		t.Fatalf("unexpected counts pos=%d vel=%d", pos.SubscriberCount(), vel.SubscriberCount())
	}

	// An empty retained payload clears the entry.
	mc.deliver("mavros/setpoint/subscribers/a", nil)
	if pos.SubscriberCount() != 1 || vel.SubscriberCount() != 0 {
		t.Fatalf("unexpected counts after leave pos=%d vel=%d", pos.SubscriberCount(), vel.SubscriberCount())
	}

	mc.deliver("mavros/setpoint/subscribers/c", []byte(`not json`))
	if pos.SubscriberCount() != 1 {
		t.Fatalf("invalid presence must be ignored")
	}
}

func TestGuidedEnableAccepted(t *testing.T) {
	mc := &mockClient{}
	replyWith(mc, coremqtt.GuidedEnableReply{Success: true})
	s := newTestSession(t, mc, Config{RPCTimeoutMS: 1000})
	if s.ServiceName() != "mavros/cmd/guided_enable" {
		t.Fatalf("unexpected service %s", s.ServiceName())
	}
	if err := s.GuidedEnable(true); err != nil {
		t.Fatalf("guided enable: %v", err)
	}
	reqs := mc.publishedOn("mavros/cmd/guided_enable")
	if len(reqs) != 1 || reqs[0].retained {
		t.Fatalf("expected one non-retained request, got %+v", reqs)
	}
	var req coremqtt.GuidedEnableRequest
	if err := json.Unmarshal(reqs[0].payload, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if !req.Value || req.RequestID == "" || req.ReplyTo != "mavros/cmd/guided_enable/reply/tester" {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(s.pending) != 0 {
		t.Fatalf("pending request not cleaned up")
	}
}

func TestGuidedEnableRejected(t *testing.T) {
	mc := &mockClient{}
	replyWith(mc, coremqtt.GuidedEnableReply{Success: false, Message: "not armed"})
	s := newTestSession(t, mc, Config{RPCTimeoutMS: 1000})
	err := s.GuidedEnable(true)
	if !errors.Is(err, coremqtt.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestGuidedEnableTimeout(t *testing.T) {
	mc := &mockClient{}
	s := newTestSession(t, mc, Config{RPCTimeoutMS: 5})
	err := s.GuidedEnable(true)
	if !errors.Is(err, coremqtt.ErrRPCTimeout) {
		t.Fatalf("expected ErrRPCTimeout, got %v", err)
	}
}

func TestGuidedEnableIgnoresForeignReply(t *testing.T) {
	mc := &mockClient{}
	mc.onPublish = func(topic string, _ []byte) {
		if topic == "mavros/cmd/guided_enable" {
			mc.deliver("mavros/cmd/guided_enable/reply/tester", []byte(`{"request_id":"other","success":true}`))
		}
	}
	s := newTestSession(t, mc, Config{RPCTimeoutMS: 5})
	if err := s.GuidedEnable(true); !errors.Is(err, coremqtt.ErrRPCTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	if c.Broker == "" || c.ClientID == "" || c.RPCTimeoutMS != 5000 || c.Encoding != EncodingJSON {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	c.Encoding = "xml"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected encoding error")
	}
	c.Encoding = EncodingCBOR
	c.QoS = map[string]byte{"setpoint": 3}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected qos error")
	}
}
