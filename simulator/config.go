package simulator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/core/setpoint"
	inframqtt "github.com/kilianp07/offboard/infra/mqtt"
)

// Config holds the bridge parameters.
type Config struct {
	// MQTT carries the broker connection settings. Its client id and will
	// message are replaced by the bridge's own.
	MQTT      inframqtt.Config
	ClientID  string
	Namespace string
	// Channels lists the setpoint channels the bridge listens on, by channel
	// or kind name. Empty means all of them.
	Channels   []string
	ReplyDelay time.Duration
}

func (c *Config) setDefaults() {
	c.MQTT.SetDefaults()
	if c.ClientID == "" {
		c.ClientID = "bridge-sim-" + uuid.NewString()[:8]
	}
	c.Namespace = coremqtt.Namespace(c.Namespace)
	if len(c.Channels) == 0 {
		for _, k := range setpoint.Kinds {
			c.Channels = append(c.Channels, k.Channel())
		}
		return
	}
	channels := make([]string, 0, len(c.Channels))
	seen := make(map[string]bool, len(c.Channels))
	for _, name := range c.Channels {
		// Unknown names are kept for Validate to reject.
		if k, err := setpoint.ParseKind(name); err == nil {
			name = k.Channel()
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		channels = append(channels, name)
	}
	c.Channels = channels
}

// Validate checks the channel names and the connection settings.
func (c Config) Validate() error {
	for _, ch := range c.Channels {
		if _, err := setpoint.ParseKind(ch); err != nil {
			return fmt.Errorf("channel %q: %w", ch, err)
		}
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if c.ReplyDelay < 0 {
		return fmt.Errorf("reply delay must not be negative")
	}
	return nil
}

// mqttConfig returns the shared connection settings with the bridge's
// client id and a will that clears its presence document.
func (c Config) mqttConfig() inframqtt.Config {
	cfg := c.MQTT
	cfg.ClientID = c.ClientID
	cfg.LWTTopic = coremqtt.PresenceTopic(c.Namespace, c.ClientID)
	cfg.LWTPayload = ""
	cfg.LWTQoS = cfg.ClassQoS("presence")
	cfg.LWTRetain = true
	return cfg
}
