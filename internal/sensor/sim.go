package sensor

import (
	"errors"
	"math"

	"ecosense/internal/alert"
)

var errSimulatedFailure = errors.New("simulated sensor failure")

// Sim produces a slow sine wave around a base reading so the alert LEDs get
// exercised on a bench without a BME280. It is not safe for concurrent use.
type Sim struct {
	Base      alert.Reading
	TempSwing float64
	HumSwing  float64
	// Period is the number of reads per full cycle.
	Period int
	// FailEvery makes every n-th read fail; zero disables failures.
	FailEvery int

	n int
}

func NewSim() *Sim {
	return &Sim{
		Base:      alert.Reading{Temperature: 24, Humidity: 55},
		TempSwing: 10,
		HumSwing:  30,
		Period:    60,
	}
}

func (s *Sim) Read() (alert.Reading, error) {
	s.n++
	if s.FailEvery > 0 && s.n%s.FailEvery == 0 {
		return alert.Invalid(), errSimulatedFailure
	}
	period := s.Period
	if period <= 0 {
		period = 1
	}
	phase := 2 * math.Pi * float64(s.n%period) / float64(period)
	return alert.Reading{
		Temperature: round2(s.Base.Temperature + s.TempSwing*math.Sin(phase)),
		Humidity:    clamp(round2(s.Base.Humidity+s.HumSwing*math.Cos(phase)), 0, 100),
	}, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
