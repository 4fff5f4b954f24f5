package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/offboard/core/monitoring"
	coremqtt "github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/core/setpoint"
	"github.com/kilianp07/offboard/infra/logger"
)

// pahoClient is the subset of paho.Client used by the session.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Session implements the core mqtt.Session on top of Eclipse Paho. It owns
// one broker connection for the lifetime of the process.
type Session struct {
	cli       pahoClient
	namespace string
	clientID  string
	cfg       Config
	codec     Codec
	logger    logger.Logger

	maxRetries int
	backoff    time.Duration
	rpcTimeout time.Duration

	mu       sync.Mutex
	pending  map[string]chan coremqtt.GuidedEnableReply
	presence map[string]coremqtt.Presence
	channels map[setpoint.Kind]*channel
}

var _ coremqtt.Session = (*Session)(nil)

// NewSession connects to the broker and subscribes to the guided-enable reply
// topic and the presence registry of namespace.
func NewSession(cfg Config, namespace string) (*Session, error) {
	cfg.SetDefaults()
	codec, err := NewCodec(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_session")
	s := &Session{
		namespace:  coremqtt.Namespace(namespace),
		clientID:   cfg.ClientID,
		cfg:        cfg,
		codec:      codec,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		rpcTimeout: cfg.rpcTimeout(),
		pending:    make(map[string]chan coremqtt.GuidedEnableReply),
		presence:   make(map[string]coremqtt.Presence),
		channels:   make(map[setpoint.Kind]*channel),
	}
	for _, k := range setpoint.Kinds {
		s.channels[k] = &channel{session: s, kind: k, topic: coremqtt.SetpointTopic(s.namespace, k)}
	}

	opts.OnConnect = s.onConnect
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	// Assigned before Connect so OnConnect never sees a nil client.
	s.cli = c
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	return s, nil
}

func (s *Session) onConnect(c paho.Client) {
	s.logger.Infof("MQTT connected as %s", s.clientID)
	reply := coremqtt.GuidedEnableReplyTopic(s.namespace, s.clientID)
	if token := c.Subscribe(reply, s.cfg.ClassQoS("reply"), s.onReply); token.Wait() && token.Error() != nil {
		s.logger.Errorf("subscribe %s: %v", reply, token.Error())
	}
	presence := coremqtt.PresenceTopic(s.namespace, "")
	if token := c.Subscribe(presence, s.cfg.ClassQoS("presence"), s.onPresence); token.Wait() && token.Error() != nil {
		s.logger.Errorf("subscribe %s: %v", presence, token.Error())
	}
}

// Channel returns the publisher handle of kind.
func (s *Session) Channel(kind setpoint.Kind) (coremqtt.Channel, error) {
	ch, ok := s.channels[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", coremqtt.ErrUnknownKind, kind)
	}
	return ch, nil
}

// ServiceName returns the guided-enable request topic.
func (s *Session) ServiceName() string {
	return coremqtt.GuidedEnableTopic(s.namespace)
}

// GuidedEnable sends one mode-enable request and waits for the correlated
// reply up to the configured RPC timeout.
func (s *Session) GuidedEnable(value bool) error {
	req := coremqtt.GuidedEnableRequest{
		RequestID: uuid.NewString(),
		Value:     value,
		ReplyTo:   coremqtt.GuidedEnableReplyTopic(s.namespace, s.clientID),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	ch := make(chan coremqtt.GuidedEnableReply, 1)
	s.mu.Lock()
	s.pending[req.RequestID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, req.RequestID)
		s.mu.Unlock()
	}()

	if err := s.publish(s.ServiceName(), s.cfg.ClassQoS("command"), false, payload); err != nil {
		return err
	}
	s.logger.Debugf("sent guided enable request %s", req.RequestID)

	timer := time.NewTimer(s.rpcTimeout)
	defer timer.Stop()
	select {
	case rep := <-ch:
		if !rep.Success {
			if rep.Message != "" {
				return fmt.Errorf("%w: %s", coremqtt.ErrRejected, rep.Message)
			}
			return coremqtt.ErrRejected
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %s", coremqtt.ErrRPCTimeout, s.rpcTimeout)
	}
}

func (s *Session) onReply(_ paho.Client, msg paho.Message) {
	var rep coremqtt.GuidedEnableReply
	if err := json.Unmarshal(msg.Payload(), &rep); err != nil {
		s.logger.Errorf("failed to decode guided enable reply: %v", err)
		return
	}
	s.mu.Lock()
	ch, ok := s.pending[rep.RequestID]
	if ok {
		select {
		case ch <- rep:
		default:
		}
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Debugf("ignoring reply for unknown request %s", rep.RequestID)
	}
}

func (s *Session) onPresence(_ paho.Client, msg paho.Message) {
	id := msg.Topic()[strings.LastIndex(msg.Topic(), "/")+1:]
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(msg.Payload()) == 0 {
		delete(s.presence, id)
		s.logger.Debugf("bridge %s left", id)
		return
	}
	var p coremqtt.Presence
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		s.logger.Errorf("failed to decode presence of %s: %v", id, err)
		return
	}
	s.presence[id] = p
	s.logger.Debugf("bridge %s listening on %v", id, p.Channels)
}

func (s *Session) listeners(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.presence {
		if p.Listens(channel) {
			n++
		}
	}
	return n
}

// publish retries with exponential backoff.
func (s *Session) publish(topic string, qos byte, retained bool, payload []byte) error {
	retries := s.maxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := s.backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= retries; attempt++ {
		token := s.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		s.logger.Errorf("publish attempt %d on %s failed: %v", attempt+1, topic, publishErr)
		if attempt < retries {
			time.Sleep(backoff * time.Duration(1<<attempt))
		}
	}
	return publishErr
}

// Close disconnects from the broker.
func (s *Session) Close() {
	if s.cli != nil && s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
}

type channel struct {
	session *Session
	kind    setpoint.Kind
	topic   string
}

func (c *channel) Topic() string { return c.topic }

// Publish sends sp retained so a bridge joining later still receives it.
func (c *channel) Publish(sp setpoint.Setpoint) error {
	if sp.Kind() != c.kind {
		return fmt.Errorf("%s setpoint on %s channel", sp.Kind(), c.kind)
	}
	payload, err := c.session.codec.Marshal(sp)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.session.codec.Name(), err)
	}
	if err := c.session.publish(c.topic, c.session.cfg.ClassQoS("setpoint"), true, payload); err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "mqtt", "topic": c.topic})
		return err
	}
	return nil
}

func (c *channel) SubscriberCount() int {
	return c.session.listeners(c.kind.Channel())
}
