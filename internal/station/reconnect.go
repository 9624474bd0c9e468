package station

import (
	"log/slog"
	"time"

	"ecosense/internal/schedule"
)

// Reconnector keeps the broker session alive. While disconnected it makes at
// most one connection attempt per interval; every successful attempt
// subscribes again, because subscriptions do not survive a dropped session.
type Reconnector struct {
	net     Network
	topic   string
	handler MessageHandler
	timer   *schedule.Timer
	logger  *slog.Logger

	connected bool
	attempts  int
}

func NewReconnector(net Network, topic string, handler MessageHandler, interval time.Duration, logger *slog.Logger) *Reconnector {
	return &Reconnector{
		net:     net,
		topic:   topic,
		handler: handler,
		timer:   schedule.NewTimer(interval),
		logger:  logger,
	}
}

// Tick advances the state machine and reports whether the session is up.
// At most one blocking connect attempt is made per call.
func (r *Reconnector) Tick(now uint32) bool {
	if r.connected && !r.net.Connected() {
		r.connected = false
		r.logger.Warn("mqtt connection lost, will retry", "retry_every_ms", r.timer.Interval())
	}
	if r.connected {
		return true
	}
	if !r.timer.Ready(now) {
		return false
	}

	r.attempts++
	err := r.net.Connect()
	if err == nil {
		err = r.net.Subscribe(r.topic, r.handler)
	}
	r.timer.Fire(now)
	if err != nil {
		r.logger.Warn("mqtt connect attempt failed", "attempt", r.attempts, "error", err)
		return false
	}

	r.connected = true
	r.logger.Info("mqtt session established", "attempts", r.attempts, "config_topic", r.topic)
	r.attempts = 0
	return true
}

func (r *Reconnector) Connected() bool { return r.connected }
