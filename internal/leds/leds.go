// Package leds drives the three status LEDs: red blinks on a temperature alert,
// blue blinks on a humidity alert, green is lit while everything is fine.
package leds

import (
	"errors"
	"fmt"
	"time"

	"ecosense/internal/alert"
	"ecosense/internal/schedule"
)

// Output is a single LED line.
type Output interface {
	Set(on bool) error
}

type Levels struct {
	Temp  bool
	Humid bool
	OK    bool
}

// Blinker holds the ON/OFF phase of both alert channels.
type Blinker struct {
	timer *schedule.Timer
	temp  bool
	humid bool
}

func NewBlinker(interval time.Duration) *Blinker {
	return &Blinker{timer: schedule.NewTimer(interval)}
}

// Update advances the blink state machine to now and returns the levels to
// show. A channel whose alert is inactive is off immediately, without waiting
// for the next blink period. The green channel follows connectivity and alerts
// directly.
func (b *Blinker) Update(now uint32, st alert.State, connected bool) Levels {
	if b.timer.Ready(now) {
		if st.Temp {
			b.temp = !b.temp
		}
		if st.Humid {
			b.humid = !b.humid
		}
		b.timer.Fire(now)
	}
	if !st.Temp {
		b.temp = false
	}
	if !st.Humid {
		b.humid = false
	}
	return Levels{
		Temp:  b.temp,
		Humid: b.humid,
		OK:    connected && !st.Any(),
	}
}

// Bank writes Levels to the physical outputs, touching a line only when its
// level changes.
type Bank struct {
	temp, humid, ok Output

	last    Levels
	written bool
}

func NewBank(temp, humid, ok Output) *Bank {
	return &Bank{temp: temp, humid: humid, ok: ok}
}

func (b *Bank) Apply(l Levels) error {
	var errs []error
	if !b.written || l.Temp != b.last.Temp {
		if err := b.temp.Set(l.Temp); err != nil {
			errs = append(errs, fmt.Errorf("temp led: %w", err))
		}
	}
	if !b.written || l.Humid != b.last.Humid {
		if err := b.humid.Set(l.Humid); err != nil {
			errs = append(errs, fmt.Errorf("humid led: %w", err))
		}
	}
	if !b.written || l.OK != b.last.OK {
		if err := b.ok.Set(l.OK); err != nil {
			errs = append(errs, fmt.Errorf("ok led: %w", err))
		}
	}
	if len(errs) > 0 {
		// Retry every line on the next Apply.
		b.written = false
		return errors.Join(errs...)
	}
	b.last = l
	b.written = true
	return nil
}

// Off switches every LED off regardless of the cached state.
func (b *Bank) Off() error {
	b.written = false
	return b.Apply(Levels{})
}
