package bus

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/rs/zerolog"

	"github.com/nixxel-company-limited/escpos-mqtt-bridge/protocol"
)

var (
	// ErrConnectionLost is reported by AwaitEvents when the broker
	// connection dropped; the caller owns reconnection.
	ErrConnectionLost = errors.New("bus: connection lost")

	// ErrNotAuthorized means the broker rejected our credentials. There
	// is no point retrying; the process should exit.
	ErrNotAuthorized = errors.New("bus: not authorized")
)

// offlineWill is the retained last-will payload the broker publishes on
// our behalf if the connection drops uncleanly.
var offlineWill = mustMarshal(protocol.Offline.Message())

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Config holds the broker connection parameters.
type Config struct {
	Hostname string
	Port     int
	Username string
	Password string
	ClientID string
	Topics   Topics
}

// Client is the MQTT bus adapter. Automatic reconnection is disabled on
// purpose: the run loop owns connection state and calls Connect again when
// AwaitEvents reports a loss.
type Client struct {
	mqtt    mqtt.Client
	topics  Topics
	lost    chan struct{}
	handler func(payload []byte)
	log     zerolog.Logger
}

// New builds the client. The broker connection always uses TLS with
// server-certificate validation; there is deliberately no way to turn that
// off. The last-will message pre-publishes a retained Offline status so
// subscribers see the printer disappear when our connection drops
// uncleanly.
func New(cfg Config, log zerolog.Logger) *Client {
	c := &Client{
		topics: cfg.Topics,
		lost:   make(chan struct{}, 1),
		log:    log,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("ssl://%s:%d", cfg.Hostname, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetBinaryWill(cfg.Topics.Status, offlineWill, 0, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	c.mqtt = mqtt.NewClient(opts)
	return c
}

// OnPrintJob registers the handler for raw inbound print messages. It must
// be called before Connect; the handler runs on the bus client's
// goroutine.
func (c *Client) OnPrintJob(fn func(payload []byte)) {
	c.handler = fn
}

// Connect dials the broker. It is used for the initial connection and
// every reconnect; the subscription is re-established by the on-connect
// handler each time.
func (c *Client) Connect() error {
	// Drop a stale loss signal from the previous session.
	select {
	case <-c.lost:
	default:
	}

	t := c.mqtt.Connect()
	t.Wait()
	if err := t.Error(); err != nil {
		if errors.Is(err, packets.ErrorRefusedNotAuthorised) {
			return ErrNotAuthorized
		}
		return fmt.Errorf("bus: connect: %w", err)
	}
	return nil
}

func (c *Client) onConnect(cl mqtt.Client) {
	c.log.Debug().Str("topic", c.topics.Print).Msg("subscribing")
	t := cl.Subscribe(c.topics.Print, 0, func(_ mqtt.Client, m mqtt.Message) {
		if c.handler != nil {
			c.handler(m.Payload())
		}
	})
	t.Wait()
	if err := t.Error(); err != nil {
		c.log.Error().Err(err).Str("topic", c.topics.Print).Msg("subscribe failed")
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.log.Warn().Err(err).Msg("connection lost")
	select {
	case c.lost <- struct{}{}:
	default:
	}
}

// AwaitEvents sleeps for up to timeout while the bus client delivers any
// pending inbound messages on its own goroutine. It wakes early with
// ErrConnectionLost when the broker connection drops.
func (c *Client) AwaitEvents(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.lost:
		return ErrConnectionLost
	case <-timer.C:
		return nil
	}
}

// PublishStatus publishes a retained status message so late subscribers
// immediately learn the last known printer state.
func (c *Client) PublishStatus(s protocol.Status) error {
	payload, err := json.Marshal(s.Message())
	if err != nil {
		return fmt.Errorf("bus: encode status: %w", err)
	}
	t := c.mqtt.Publish(c.topics.Status, 0, true, payload)
	t.Wait()
	return t.Error()
}

// PublishResult publishes one job result, not retained.
func (c *Client) PublishResult(r Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("bus: encode result: %w", err)
	}
	t := c.mqtt.Publish(c.topics.Printed, 0, false, payload)
	t.Wait()
	return t.Error()
}
