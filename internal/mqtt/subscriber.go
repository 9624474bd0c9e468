package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ecosense/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MessageHandler processes one message. It runs on a paho goroutine.
type MessageHandler = func(topic string, payload []byte)

// Subscriber is the bridge's broker session. Unlike Client it lets paho
// reconnect on its own and renews its subscriptions from the connect handler.
type Subscriber struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	subsMu    sync.Mutex
	subs      map[string]MessageHandler
	observers []func(connected bool)

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	s := &Subscriber{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[string]MessageHandler),
		stopCh: make(chan struct{}),
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

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// The session is clean, so every (re)connect has to subscribe again.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		s.resubscribe(c)
		s.notify(true)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
		s.notify(false)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Handle registers h for topic. Call it before Connect; registrations made
// later take effect on the next reconnect.
func (s *Subscriber) Handle(topic string, h MessageHandler) {
	s.subsMu.Lock()
	s.subs[topic] = h
	s.subsMu.Unlock()
}

// OnStateChange registers fn to run after every connect, once the
// subscriptions are renewed, and after every lost connection. fn runs on a
// paho goroutine and may publish.
func (s *Subscriber) OnStateChange(fn func(connected bool)) {
	s.subsMu.Lock()
	s.observers = append(s.observers, fn)
	s.subsMu.Unlock()
}

func (s *Subscriber) notify(connected bool) {
	s.subsMu.Lock()
	observers := append([]func(bool){}, s.observers...)
	s.subsMu.Unlock()
	for _, fn := range observers {
		fn(connected)
	}
}

func (s *Subscriber) resubscribe(c mqtt.Client) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for topic, h := range s.subs {
		h := h
		token := c.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			s.logger.Debug("received mqtt message", "topic", msg.Topic(), "size", len(msg.Payload()))
			h(msg.Topic(), msg.Payload())
		})
		// The connect handler runs on paho's goroutine; waiting here is fine
		// because the ack is routed independently.
		if !token.WaitTimeout(opTimeout) {
			s.logger.Error("subscribe timeout", "topic", topic)
			continue
		}
		if err := token.Error(); err != nil {
			s.logger.Error("subscribe failed", "topic", topic, "error", err)
			continue
		}
		s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", 1)
	}
}

// Connect starts the session and waits for the first CONNACK. When ctx ends
// first, Connect returns ctx.Err() but paho keeps retrying in the background;
// only Disconnect stops it.
func (s *Subscriber) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-s.stopCh:
		return fmt.Errorf("subscriber stopped")
	default:
	}

	// Fast path.
	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	// Wait in a ctx/stop-aware loop.
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return fmt.Errorf("subscriber stopped")
		default:
		}
	}
}

// Publish sends payload to topic at QoS 1.
func (s *Subscriber) Publish(topic string, payload []byte, retained bool) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	token := s.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		s.logger.Error("failed to publish", "topic", topic, "error", err)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	s.logger.Debug("published", "topic", topic, "size", len(payload), "retained", retained)
	return nil
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.IsConnected() {
		s.subsMu.Lock()
		topics := make([]string, 0, len(s.subs))
		for t := range s.subs {
			topics = append(topics, t)
		}
		s.subsMu.Unlock()
		if len(topics) > 0 {
			token := s.client.Unsubscribe(topics...)
			token.WaitTimeout(2 * time.Second)
		}
	}

	s.client.Disconnect(250)
	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
