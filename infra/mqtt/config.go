package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/offboard/auth"
	"github.com/kilianp07/offboard/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	// AuthMethod is "username_password" (default), "both" (username and
	// password alongside TLS client certificates) or "oauth2", where an access
	// token replaces the password.
	AuthMethod string    `json:"auth_method"`
	OAuth      auth.Conf `json:"oauth"`
	// QoS per message class: "setpoint", "command", "reply", "presence".
	QoS        map[string]byte `json:"qos"`
	LWTTopic   string          `json:"lwt_topic"`
	LWTPayload string          `json:"lwt_payload"`
	LWTQoS     byte            `json:"lwt_qos"`
	LWTRetain  bool            `json:"lwt_retain"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
	// RPCTimeoutMS bounds the wait for a guided-enable reply.
	RPCTimeoutMS int `json:"rpc_timeout_ms"`
	// Encoding of setpoint payloads: json or cbor.
	Encoding  string      `json:"encoding"`
	TLSConfig *tls.Config `json:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.ClientID == "" {
		c.ClientID = "offboard-" + uuid.NewString()
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
	if c.RPCTimeoutMS == 0 {
		c.RPCTimeoutMS = 5000
	}
	if c.Encoding == "" {
		c.Encoding = EncodingJSON
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.RPCTimeoutMS < 0 || c.BackoffMS < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("mqtt timings must not be negative")
	}
	for class, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("invalid qos %d for %s", q, class)
		}
	}
	if _, err := NewCodec(c.Encoding); err != nil {
		return err
	}
	switch c.AuthMethod {
	case "", "username_password", "both":
	case "oauth2":
		if err := c.OAuth.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown auth_method %s", c.AuthMethod)
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	return nil
}

func (c Config) rpcTimeout() time.Duration {
	if c.RPCTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.RPCTimeoutMS) * time.Millisecond
}

// ClassQoS returns the QoS configured for a message class, 1 when unset.
func (c Config) ClassQoS(class string) byte {
	if q, ok := c.QoS[class]; ok {
		return q
	}
	return 1
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	switch cfg.AuthMethod {
	case "", "username_password", "both":
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	case "oauth2":
		// The token replaces the static password and is renewed on reconnect.
		log := logger.New("mqtt")
		cred := auth.NewClientCred(cfg.OAuth)
		opts.SetCredentialsProvider(cred.Credentials(cfg.Username, func(err error) {
			log.Errorf("broker token: %v", err)
		}))
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("no certificates in %s", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
