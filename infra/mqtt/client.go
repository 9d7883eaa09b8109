// Package mqtt connects the optimizer to the plant message bus: it listens
// for demand requests, publishes dispatch reports and carries telemetry.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/cogendispatch/core/monitoring"
	"github.com/kilianp07/cogendispatch/infra/logger"
)

// Payloads published on Config.StatusTopic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// QoS keys.
const (
	QoSRequest   = "request"
	QoSReport    = "report"
	QoSTelemetry = "telemetry"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string          `json:"broker"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	RequestTopic string          `json:"request_topic"`
	ReportTopic  string          `json:"report_topic"`
	UseTLS       bool            `json:"use_tls"`
	ClientCert   string          `json:"client_cert"`
	ClientKey    string          `json:"client_key"`
	CABundle     string          `json:"ca_bundle"`
	QoS          map[string]byte `json:"qos"`
	// StatusTopic receives a retained "online" on connect and, as last
	// will, "offline" when the connection drops.
	StatusTopic string      `json:"status_topic"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// SetDefaults fills topics and retry settings.
func (c *Config) SetDefaults() {
	if c.RequestTopic == "" {
		c.RequestTopic = "cogen/dispatch/request"
	}
	if c.ReportTopic == "" {
		c.ReportTopic = "cogen/dispatch/report"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the settings needed to connect.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.Password != "" && c.Username == "" {
		return fmt.Errorf("mqtt: password set without username")
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt: qos %s must be 0, 1 or 2", k)
		}
	}
	return nil
}

// Handler receives the topic and payload of a message.
type Handler func(topic string, payload []byte)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

type subscription struct {
	qos     byte
	handler Handler
}

// PahoClient publishes with retries and keeps subscriptions across
// reconnects.
type PahoClient struct {
	cli pahoClient
	qos map[string]byte

	mu          sync.Mutex
	subs        map[string]subscription
	logger      logger.Logger
	maxRetries  int
	backoff     time.Duration
	statusTopic string
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		subs:        make(map[string]subscription),
		logger:      log,
		qos:         cfg.QoS,
		maxRetries:  cfg.MaxRetries,
		backoff:     time.Duration(cfg.BackoffMS) * time.Millisecond,
		statusTopic: cfg.StatusTopic,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if cfg.StatusTopic != "" {
			if token := c.Publish(cfg.StatusTopic, 1, true, StatusOnline); token.Wait() && token.Error() != nil {
				log.Errorf("status %s: %v", cfg.StatusTopic, token.Error())
			}
		}
		pc.mu.Lock()
		subs := make(map[string]subscription, len(pc.subs))
		for t, s := range pc.subs {
			subs[t] = s
		}
		pc.mu.Unlock()
		for topic, s := range subs {
			if token := c.Subscribe(topic, s.qos, wrap(s.handler)); token.Wait() && token.Error() != nil {
				log.Errorf("resubscribe %s: %v", topic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config. An empty client
// id gets a random suffix.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	id := cfg.ClientID
	if id == "" {
		id = "cogendispatch-" + uuid.NewString()
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(id)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.StatusTopic != "" {
		opts.SetWill(cfg.StatusTopic, StatusOffline, 1, true)
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
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func wrap(h Handler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) { h(msg.Topic(), msg.Payload()) }
}

// QoS returns the configured level for key, 0 when unset.
func (p *PahoClient) QoS(key string) byte {
	return p.qos[key]
}

// Subscribe registers h on topic. The subscription is restored after a
// reconnect.
func (p *PahoClient) Subscribe(topic string, qos byte, h Handler) error {
	p.mu.Lock()
	p.subs[topic] = subscription{qos: qos, handler: h}
	p.mu.Unlock()
	if token := p.cli.Subscribe(topic, qos, wrap(h)); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	p.logger.Infof("subscribed to %s", topic)
	return nil
}

// Publish sends payload, retrying with exponential backoff. The final
// failure is reported to the error monitor.
func (p *PahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	retries := p.maxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := p.backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= retries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d on %s failed: %v", attempt+1, topic, publishErr)
		if attempt < retries {
			time.Sleep(backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": topic})
	return publishErr
}

// Disconnect marks the service offline and closes the connection.
func (p *PahoClient) Disconnect() {
	if p.cli == nil || !p.cli.IsConnected() {
		return
	}
	if p.statusTopic != "" {
		p.cli.Publish(p.statusTopic, 1, true, StatusOffline).WaitTimeout(time.Second)
	}
	p.cli.Disconnect(250)
}
