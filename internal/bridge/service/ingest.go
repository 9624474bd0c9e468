package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"ecosense/internal/bridge/repository"
	"ecosense/internal/bridge/types"
)

// Recorder counts what the bridge does. *metrics.Metrics implements it.
type Recorder interface {
	ReadingIngested(kind string)
	PayloadRejected(reason string)
	ThresholdsPublished(err error)
}

// Ingest stores the decimal readings the station publishes.
type Ingest struct {
	repo    repository.ReadingsRepository
	topics  map[string]types.Kind
	rec     Recorder
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewIngest(repo repository.ReadingsRepository, topicTemp, topicHumid string, rec Recorder, logger *slog.Logger) *Ingest {
	return &Ingest{
		repo: repo,
		topics: map[string]types.Kind{
			topicTemp:  types.KindTemperature,
			topicHumid: types.KindHumidity,
		},
		rec:     rec,
		logger:  logger,
		now:     time.Now,
		timeout: 5 * time.Second,
	}
}

// Topics lists the subscriptions Handle expects.
func (in *Ingest) Topics() []string {
	out := make([]string, 0, len(in.topics))
	for t := range in.topics {
		out = append(out, t)
	}
	return out
}

// Handle is the broker callback for both reading topics. Payloads that are
// not a finite decimal are logged and dropped.
func (in *Ingest) Handle(topic string, payload []byte) {
	kind, ok := in.topics[topic]
	if !ok {
		in.rec.PayloadRejected("unknown_topic")
		in.logger.Warn("message on unexpected topic", "topic", topic)
		return
	}

	v, err := parseDecimal(payload)
	if err != nil {
		in.rec.PayloadRejected("not_a_number")
		in.logger.Warn("reading payload rejected", "topic", topic, "payload", string(payload), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), in.timeout)
	defer cancel()

	rd := types.Reading{Kind: kind, Time: in.now(), Value: v}
	if err := in.repo.InsertReading(ctx, rd); err != nil {
		in.rec.PayloadRejected("store_failed")
		in.logger.Error("failed to store reading", "kind", kind, "error", err)
		return
	}
	in.rec.ReadingIngested(string(kind))
	in.logger.Debug("reading stored", "kind", kind, "value", v)
}

func parseDecimal(payload []byte) (float64, error) {
	s := strings.TrimSpace(string(payload))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
