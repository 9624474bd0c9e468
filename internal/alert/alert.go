// Package alert evaluates sensor readings against the configured bounds and
// ingests bound updates received from the broker.
package alert

import "math"

// Reading is one sensor sample. A failed read is signalled with NaN in either field.
type Reading struct {
	Temperature float64
	Humidity    float64
}

// Invalid returns a reading carrying the NaN sentinel.
func Invalid() Reading {
	return Reading{Temperature: math.NaN(), Humidity: math.NaN()}
}

func (r Reading) Valid() bool {
	return !math.IsNaN(r.Temperature) && !math.IsNaN(r.Humidity)
}

// Bounds is the live threshold configuration.
type Bounds struct {
	TempMin  float64 `json:"temp_min"`
	TempMax  float64 `json:"temp_max"`
	HumidMin float64 `json:"umid_min"`
	HumidMax float64 `json:"umid_max"`
}

// DefaultBounds are the limits the station boots with.
func DefaultBounds() Bounds {
	return Bounds{TempMin: 15, TempMax: 30, HumidMin: 30, HumidMax: 80}
}

type State struct {
	Temp  bool
	Humid bool
}

func (s State) Any() bool { return s.Temp || s.Humid }

// Evaluate derives the alert flags for r under b. An invalid reading yields
// ok == false and prev is returned unchanged.
func Evaluate(r Reading, b Bounds, prev State) (State, bool) {
	if !r.Valid() {
		return prev, false
	}
	return State{
		Temp:  r.Temperature > b.TempMax || r.Temperature < b.TempMin,
		Humid: r.Humidity > b.HumidMax || r.Humidity < b.HumidMin,
	}, true
}
