package types

import (
	"fmt"
	"time"

	"ecosense/internal/alert"
)

type Kind string

const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
)

// ParseKind accepts the English names as well as the Portuguese ones used in
// the broker topics.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "temperature", "temperatura":
		return KindTemperature, nil
	case "humidity", "umidade":
		return KindHumidity, nil
	default:
		return "", fmt.Errorf("unknown reading kind %q (allowed: temperature, humidity)", s)
	}
}

func (k Kind) Unit() string {
	if k == KindTemperature {
		return "C"
	}
	return "%"
}

type Reading struct {
	Kind  Kind      `json:"kind"`
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// KPI is the newest value of one kind and its change from the reading before.
type KPI struct {
	Kind  Kind      `json:"kind"`
	Value float64   `json:"value"`
	Delta float64   `json:"delta"`
	Unit  string    `json:"unit"`
	Time  time.Time `json:"time"`
}

type Latest struct {
	Temperature *KPI `json:"temperature"`
	Humidity    *KPI `json:"humidity"`
}

// Thresholds is the stored alert configuration pushed to the station.
type Thresholds struct {
	alert.Bounds
	UpdatedAt time.Time `json:"updated_at"`
}
