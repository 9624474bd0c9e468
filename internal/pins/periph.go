// Package pins adapts digital pins to the station's button and LED lines.
package pins

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Button is an active-low push button on a pulled-up input.
type Button struct {
	pin gpio.PinIn
}

// OpenButton looks up name (e.g. "GPIO17") in the pin registry and configures
// it as a pulled-up input. host.Init must have run.
func OpenButton(name string) (*Button, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return NewButton(p)
}

func NewButton(p gpio.PinIn) (*Button, error) {
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure button %s: %w", p, err)
	}
	return &Button{pin: p}, nil
}

func (b *Button) Pressed() (bool, error) {
	return b.pin.Read() == gpio.Low, nil
}

// LED is an active-high output line.
type LED struct {
	pin gpio.PinOut
}

// OpenLED looks up name in the pin registry and drives it low.
func OpenLED(name string) (*LED, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return NewLED(p)
}

func NewLED(p gpio.PinOut) (*LED, error) {
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure led %s: %w", p, err)
	}
	return &LED{pin: p}, nil
}

func (l *LED) Set(on bool) error {
	if err := l.pin.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("led %s: %w", l.pin, err)
	}
	return nil
}
