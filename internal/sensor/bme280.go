// Package sensor provides the station's temperature and humidity sources.
package sensor

import (
	"fmt"

	"ecosense/internal/alert"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// BME280 reads a Bosch BME280 over I2C.
type BME280 struct {
	dev *bmxx80.Dev
}

// NewBME280 probes the chip at addr (0x76 or 0x77). The bus stays owned by
// the caller.
func NewBME280(bus i2c.Bus, addr uint16) (*BME280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bme280 at %#x: %w", addr, err)
	}
	return &BME280{dev: dev}, nil
}

// Read takes one forced measurement. On failure the returned reading holds NaN.
func (s *BME280) Read() (alert.Reading, error) {
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return alert.Invalid(), fmt.Errorf("bme280 sense: %w", err)
	}
	return fromEnv(env), nil
}

func (s *BME280) Close() error {
	return s.dev.Halt()
}

func fromEnv(env physic.Env) alert.Reading {
	// env.Humidity is fixed point at a precision of 0.00001 %rH.
	return alert.Reading{
		Temperature: env.Temperature.Celsius(),
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
	}
}
