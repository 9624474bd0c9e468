package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"ecosense/internal/alert"
	"ecosense/internal/bridge/repository"
	"ecosense/internal/bridge/types"
)

var ErrInvalidThresholds = errors.New("invalid thresholds")

// Publisher sends a payload to the broker.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Thresholds owns the stored alert limits and pushes every change to the
// station's config topic.
type Thresholds struct {
	repo   repository.ReadingsRepository
	pub    Publisher
	topic  string
	rec    Recorder
	logger *slog.Logger
	now    func() time.Time
}

func NewThresholds(repo repository.ReadingsRepository, pub Publisher, topic string, rec Recorder, logger *slog.Logger) *Thresholds {
	return &Thresholds{repo: repo, pub: pub, topic: topic, rec: rec, logger: logger, now: time.Now}
}

// EnsureDefaults creates the default document when none is stored.
func (s *Thresholds) EnsureDefaults(ctx context.Context) error {
	created, err := s.repo.EnsureThresholds(ctx, alert.DefaultBounds(), s.now())
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("thresholds not configured, stored defaults", "bounds", alert.DefaultBounds())
	}
	return nil
}

func (s *Thresholds) Get(ctx context.Context) (types.Thresholds, error) {
	return s.repo.GetThresholds(ctx)
}

// Put validates and stores b, then publishes it. The returned error is only
// about storing; a failed publish is reported through published.
func (s *Thresholds) Put(ctx context.Context, b alert.Bounds) (t types.Thresholds, published bool, err error) {
	if err := Validate(b); err != nil {
		return types.Thresholds{}, false, err
	}
	at := s.now()
	if err := s.repo.PutThresholds(ctx, b, at); err != nil {
		return types.Thresholds{}, false, err
	}
	s.logger.Info("thresholds updated",
		"temp_min", b.TempMin, "temp_max", b.TempMax,
		"umid_min", b.HumidMin, "umid_max", b.HumidMax,
	)
	t = types.Thresholds{Bounds: b, UpdatedAt: at.UTC()}
	return t, s.publish(b) == nil, nil
}

// Republish sends the stored document again, e.g. once the broker is reachable.
func (s *Thresholds) Republish(ctx context.Context) error {
	t, err := s.repo.GetThresholds(ctx)
	if err != nil {
		return err
	}
	return s.publish(t.Bounds)
}

func (s *Thresholds) publish(b alert.Bounds) error {
	payload, err := json.Marshal(b)
	if err == nil {
		err = s.pub.Publish(s.topic, payload, false)
	}
	s.rec.ThresholdsPublished(err)
	if err != nil {
		s.logger.Warn("failed to publish thresholds", "topic", s.topic, "error", err)
		return err
	}
	s.logger.Info("thresholds published", "topic", s.topic, "payload", string(payload))
	return nil
}

// Validate requires finite values and min <= max for both quantities.
func Validate(b alert.Bounds) error {
	for name, v := range map[string]float64{
		"temp_min": b.TempMin, "temp_max": b.TempMax,
		"umid_min": b.HumidMin, "umid_max": b.HumidMax,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidThresholds, name)
		}
	}
	if b.TempMin > b.TempMax {
		return fmt.Errorf("%w: temp_min %v > temp_max %v", ErrInvalidThresholds, b.TempMin, b.TempMax)
	}
	if b.HumidMin > b.HumidMax {
		return fmt.Errorf("%w: umid_min %v > umid_max %v", ErrInvalidThresholds, b.HumidMin, b.HumidMax)
	}
	return nil
}
