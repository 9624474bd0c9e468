package pins

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// SimButton is a button without hardware. Tap queues one press that is seen
// by exactly one Pressed call; the next call sees the button released again.
type SimButton struct {
	taps atomic.Int32
	down bool
}

func (b *SimButton) Tap() { b.taps.Add(1) }

func (b *SimButton) Pressed() (bool, error) {
	if b.down {
		b.down = false
		return false, nil
	}
	for {
		n := b.taps.Load()
		if n == 0 {
			return false, nil
		}
		if b.taps.CompareAndSwap(n, n-1) {
			b.down = true
			return true, nil
		}
	}
}

// SimLED records its level and logs transitions at debug.
type SimLED struct {
	name   string
	logger *slog.Logger

	mu sync.Mutex
	on bool
}

func NewSimLED(name string, logger *slog.Logger) *SimLED {
	return &SimLED{name: name, logger: logger}
}

func (l *SimLED) Set(on bool) error {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	l.mu.Unlock()
	if changed && l.logger != nil {
		l.logger.Debug("led", "name", l.name, "on", on)
	}
	return nil
}

func (l *SimLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
