package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ecosense/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt client not connected")

const (
	defaultInboxSize = 16
	opTimeout        = 5 * time.Second
)

type inbound struct {
	topic   string
	payload []byte
	handler func(topic string, payload []byte)
}

// Client is the station's broker session. Reconnection is left to the caller:
// paho's auto-reconnect is off and Connect makes a single bounded attempt.
// Messages arriving on paho's goroutines are queued and handed to their
// handlers only from Service, so handlers run on the caller's goroutine.
type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	inbox   chan inbound
	dropped atomic.Uint64
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	return newClient(cfg, logger, defaultInboxSize)
}

func newClient(cfg config.Config, logger *slog.Logger, inboxSize int) *Client {
	c := &Client{
		cfg:    cfg,
		logger: logger,
		inbox:  make(chan inbound, inboxSize),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	// Session settings
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(cfg.MQTTConnectTimeout)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect makes one connection attempt, bounded by the configured connect
// timeout. It returns nil straight away when the session is already up.
func (c *Client) Connect() error {
	if c.Connected() {
		return nil
	}
	token := c.client.Connect()
	if !token.WaitTimeout(c.cfg.MQTTConnectTimeout + time.Second) {
		return fmt.Errorf("mqtt connect: timeout after %v", c.cfg.MQTTConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	// paho runs the connect handler on its own goroutine; the caller may
	// subscribe before it gets there.
	c.setConnected(true)
	return nil
}

// Subscribe registers h for topic at QoS 0. The subscription belongs to the
// current session and has to be renewed after every reconnect.
func (c *Client) Subscribe(topic string, h func(topic string, payload []byte)) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		c.enqueue(inbound{topic: msg.Topic(), payload: msg.Payload(), handler: h})
	})
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	c.logger.Info("subscribed to mqtt topic", "topic", topic)
	return nil
}

func (c *Client) enqueue(m inbound) {
	select {
	case c.inbox <- m:
	default:
		n := c.dropped.Add(1)
		c.logger.Warn("mqtt inbox full, message dropped", "topic", m.topic, "dropped_total", n)
	}
}

// Service delivers the messages queued so far. Messages that arrive while it
// runs wait for the next call.
func (c *Client) Service() {
	for n := len(c.inbox); n > 0; n-- {
		select {
		case m := <-c.inbox:
			c.logger.Debug("received mqtt message", "topic", m.topic, "size", len(m.payload))
			m.handler(m.topic, m.payload)
		default:
			return
		}
	}
}

// Publish sends payload at QoS 0, not retained.
func (c *Client) Publish(topic string, payload string) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Connected reports whether the session is up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect closes the session. Safe to call when not connected.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

// Dropped returns how many inbound messages were discarded on a full inbox.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
