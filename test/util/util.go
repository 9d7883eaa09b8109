// Package util runs the disposable MQTT broker used by integration tests
// and wraps a plain paho client for driving it.
package util

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mosquittoImage = "eclipse-mosquitto:2.0"
	readyTimeout   = 10 * time.Second
	tokenTimeout   = 5 * time.Second
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`

// Broker is a running Mosquitto container.
type Broker struct {
	URL       string
	container tc.Container
}

// StartMosquitto starts a broker and waits until it accepts MQTT
// connections. Callers should skip the test when it fails, as it needs a
// Docker daemon.
func StartMosquitto(ctx context.Context) (*Broker, error) {
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        mosquittoImage,
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
			Files: []tc.ContainerFile{{
				Reader:            strings.NewReader(mosquittoConf),
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0o644,
			}},
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}
	b := &Broker{container: cont}
	host, err := cont.Host(ctx)
	if err != nil {
		b.Close()
		return nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		b.Close()
		return nil, err
	}
	b.URL = fmt.Sprintf("tcp://%s:%s", host, port.Port())

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	for {
		cli, err := b.Client("probe")
		if err == nil {
			cli.Disconnect(100)
			return b, nil
		}
		select {
		case <-readyCtx.Done():
			b.Close()
			return nil, fmt.Errorf("mosquitto not ready: %w", err)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Close terminates the container.
func (b *Broker) Close() {
	_ = b.container.Terminate(context.Background())
}

// Client is a connected test client.
type Client struct {
	paho.Client
}

// Client connects a new client with the given id.
func (b *Broker) Client(id string) (*Client, error) {
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(b.URL).SetClientID(id))
	if err := wait5(cli.Connect()); err != nil {
		return nil, err
	}
	return &Client{Client: cli}, nil
}

// PublishJSON marshals v and publishes it with QoS 1.
func (c *Client) PublishJSON(topic string, retained bool, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return wait5(c.Publish(topic, 1, retained, b))
}

// Collect subscribes to topic and returns a channel receiving every payload.
// Payloads are dropped once 64 are pending.
func (c *Client) Collect(topic string) (<-chan []byte, error) {
	ch := make(chan []byte, 64)
	err := wait5(c.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		select {
		case ch <- m.Payload():
		default:
		}
	}))
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func wait5(t paho.Token) error {
	if !t.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("mqtt: no ack after %s", tokenTimeout)
	}
	return t.Error()
}
