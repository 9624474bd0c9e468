// Package station runs the weather station: one cooperative loop that polls
// the sensor, publishes readings, ingests threshold updates, blinks the alert
// LEDs, debounces the page button and redraws the display.
//
// Every task is driven from Tick on a single goroutine, including inbound
// broker messages, which Network.Service delivers synchronously. No state in
// this package is safe for concurrent use.
package station

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"ecosense/internal/alert"
	"ecosense/internal/leds"
	"ecosense/internal/pages"
	"ecosense/internal/schedule"
)

type Sensor interface {
	// Read returns one sample. Implementations may return a reading holding
	// NaN instead of an error; both are treated as a failed read.
	Read() (alert.Reading, error)
}

type Display interface {
	Clear()
	DrawText(line int, text string)
	Flush() error
}

// sizedDisplay is a Display that knows how many text lines it holds.
type sizedDisplay interface {
	Lines() int
}

// Input is the page button, reporting the logical (pressed = true) level.
type Input interface {
	Pressed() (bool, error)
}

// MessageHandler is an alias so broker clients can implement Network without
// importing this package.
type MessageHandler = func(topic string, payload []byte)

// Network is the broker client. Connect performs one bounded attempt.
// Service delivers queued inbound messages to their handlers on the calling
// goroutine.
type Network interface {
	Connect() error
	Connected() bool
	Subscribe(topic string, h MessageHandler) error
	Publish(topic string, payload string) error
	Service()
	Disconnect()
}

type Config struct {
	TopicTemperature string
	TopicHumidity    string
	TopicConfig      string

	PollInterval      time.Duration
	BlinkInterval     time.Duration
	DebounceInterval  time.Duration
	ReconnectInterval time.Duration
	LoopInterval      time.Duration
}

type Deps struct {
	Clock   schedule.Clock
	Sensor  Sensor
	Display Display
	Button  Input
	LEDs    *leds.Bank
	Network Network
}

type Station struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	reconnect *Reconnector
	poll      *schedule.Timer
	blink     *leds.Blinker
	button    *pages.Button
	selector  pages.Selector

	reading    alert.Reading
	hasReading bool
	bounds     alert.Bounds
	alerts     alert.State
	connected  bool
	dirty      bool

	// Fault flags keep a persistent hardware error from being logged every tick.
	ledFault     bool
	buttonFault  bool
	displayFault bool
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Station {
	s := &Station{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		poll:   schedule.NewTimer(cfg.PollInterval),
		blink:  leds.NewBlinker(cfg.BlinkInterval),
		button: pages.NewButton(cfg.DebounceInterval),
		bounds: alert.DefaultBounds(),
		dirty:  true,
	}
	s.reconnect = NewReconnector(deps.Network, cfg.TopicConfig, s.handleConfig, cfg.ReconnectInterval, logger)
	return s
}

// Run ticks the station until ctx is cancelled, then switches the LEDs off and
// closes the broker session.
func (s *Station) Run(ctx context.Context) error {
	s.logger.Info("station loop started",
		"poll_interval", s.cfg.PollInterval,
		"blink_interval", s.cfg.BlinkInterval,
		"debounce_interval", s.cfg.DebounceInterval,
		"reconnect_interval", s.cfg.ReconnectInterval,
	)
	defer s.shutdown()

	ticker := time.NewTicker(s.cfg.LoopInterval)
	defer ticker.Stop()

	s.Tick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs every task once, in a fixed order.
func (s *Station) Tick() {
	now := s.deps.Clock.Millis()

	connected := s.reconnect.Tick(now)
	if connected != s.connected {
		s.connected = connected
		s.dirty = true
	}
	s.deps.Network.Service()

	s.pollButton(now)
	s.pollSensor(now)
	s.driveLEDs(now)

	if s.dirty {
		s.redraw()
	}
}

func (s *Station) pollButton(now uint32) {
	pressed, err := s.deps.Button.Pressed()
	if err != nil {
		if !s.buttonFault {
			s.logger.Warn("button read failed", "error", err)
			s.buttonFault = true
		}
		return
	}
	s.buttonFault = false
	if s.button.Sample(now, pressed) {
		page := s.selector.Next()
		s.dirty = true
		s.logger.Debug("page changed", "page", page.String())
	}
}

func (s *Station) pollSensor(now uint32) {
	if !s.poll.Ready(now) {
		return
	}
	defer s.poll.Fire(now)

	r, err := s.deps.Sensor.Read()
	if err == nil && !r.Valid() {
		err = errors.New("sensor returned NaN")
	}
	if err != nil {
		s.logger.Warn("sensor read failed, reading discarded", "error", err)
		return
	}

	s.reading = r
	s.hasReading = true
	s.alerts, _ = alert.Evaluate(r, s.bounds, s.alerts)
	s.dirty = true
	s.logger.Debug("sensor reading",
		"temperature", r.Temperature,
		"humidity", r.Humidity,
		"temp_alert", s.alerts.Temp,
		"humid_alert", s.alerts.Humid,
	)

	s.publish(s.cfg.TopicTemperature, r.Temperature)
	s.publish(s.cfg.TopicHumidity, r.Humidity)
}

func (s *Station) publish(topic string, v float64) {
	if !s.connected {
		return
	}
	payload := strconv.FormatFloat(v, 'f', 2, 64)
	if err := s.deps.Network.Publish(topic, payload); err != nil {
		s.logger.Warn("publish failed", "topic", topic, "error", err)
		return
	}
	s.logger.Debug("published reading", "topic", topic, "payload", payload)
}

// handleConfig is the inbound config handler. It runs inside Network.Service
// on the loop goroutine and leaves bounds and alerts consistent before it
// returns.
func (s *Station) handleConfig(topic string, payload []byte) {
	u, err := alert.ParseUpdate(payload)
	if err != nil {
		s.logger.Warn("config payload rejected", "topic", topic, "error", err, "payload", string(payload))
		return
	}
	if u.Empty() {
		s.logger.Debug("config payload has no known keys", "topic", topic)
		return
	}

	s.bounds = u.Apply(s.bounds)
	if s.hasReading {
		s.alerts, _ = alert.Evaluate(s.reading, s.bounds, s.alerts)
	}
	s.dirty = true
	s.logger.Info("alert limits updated",
		"temp_min", s.bounds.TempMin,
		"temp_max", s.bounds.TempMax,
		"umid_min", s.bounds.HumidMin,
		"umid_max", s.bounds.HumidMax,
	)
}

func (s *Station) driveLEDs(now uint32) {
	levels := s.blink.Update(now, s.alerts, s.connected)
	if err := s.deps.LEDs.Apply(levels); err != nil {
		if !s.ledFault {
			s.logger.Warn("led update failed", "error", err)
			s.ledFault = true
		}
		return
	}
	s.ledFault = false
}

func (s *Station) redraw() {
	lines := pages.Render(s.selector.Current(), s.view())
	d := s.deps.Display
	if sd, ok := d.(sizedDisplay); ok {
		lines = lines.Fit(sd.Lines())
	}
	d.Clear()
	for i, l := range lines {
		d.DrawText(i, l)
	}
	if err := d.Flush(); err != nil {
		if !s.displayFault {
			s.logger.Warn("display flush failed", "error", err)
			s.displayFault = true
		}
		return
	}
	s.displayFault = false
	s.dirty = false
}

func (s *Station) view() pages.View {
	return pages.View{
		Reading:    s.reading,
		HasReading: s.hasReading,
		Bounds:     s.bounds,
		Alerts:     s.alerts,
		Connected:  s.connected,
	}
}

func (s *Station) shutdown() {
	if err := s.deps.LEDs.Off(); err != nil {
		s.logger.Warn("led shutdown failed", "error", err)
	}
	s.deps.Display.Clear()
	if err := s.deps.Display.Flush(); err != nil {
		s.logger.Warn("display clear failed", "error", err)
	}
	s.deps.Network.Disconnect()
	s.logger.Info("station loop stopped")
}

// Snapshot is a copy of the station state for inspection.
type Snapshot struct {
	Reading    alert.Reading
	HasReading bool
	Bounds     alert.Bounds
	Alerts     alert.State
	Connected  bool
	Page       pages.Page
}

func (s *Station) Snapshot() Snapshot {
	return Snapshot{
		Reading:    s.reading,
		HasReading: s.hasReading,
		Bounds:     s.bounds,
		Alerts:     s.alerts,
		Connected:  s.connected,
		Page:       s.selector.Current(),
	}
}
