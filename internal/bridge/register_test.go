package bridge

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecosense/internal/config"
	"ecosense/internal/storage/migrate"

	_ "github.com/mattn/go-sqlite3"
)

type fakeBroker struct {
	handlers  map[string]func(string, []byte)
	published map[string]string
}

func (b *fakeBroker) Handle(topic string, h func(topic string, payload []byte)) {
	b.handlers[topic] = h
}

func (b *fakeBroker) Publish(topic string, payload []byte, _ bool) error {
	b.published[topic] = string(payload)
	return nil
}

type nopRecorder struct{}

func (nopRecorder) ReadingIngested(string)    {}
func (nopRecorder) PayloadRejected(string)    {}
func (nopRecorder) ThresholdsPublished(error) {}

func TestRegisterFeature(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := migrate.Run(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		TopicTemperature: "esp32/sensor/temperatura",
		TopicHumidity:    "esp32/sensor/umidade",
		TopicConfig:      "esp32/config/limites",
	}
	broker := &fakeBroker{handlers: map[string]func(string, []byte){}, published: map[string]string{}}
	mux := http.NewServeMux()

	feature := RegisterFeature(mux, db, broker, cfg, nopRecorder{}, logger)

	if len(broker.handlers) != 2 {
		t.Fatalf("registered %d topic handlers; want 2", len(broker.handlers))
	}
	broker.handlers[cfg.TopicHumidity](cfg.TopicHumidity, []byte("71.50"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/readings?kind=humidity", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"value":71.5`) {
		t.Fatalf("readings: status=%d body=%s", rec.Code, rec.Body)
	}

	if err := feature.Thresholds.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	if err := feature.Thresholds.Republish(context.Background()); err != nil {
		t.Fatalf("Republish: %v", err)
	}
	if !strings.Contains(broker.published[cfg.TopicConfig], `"temp_max":30`) {
		t.Errorf("published = %v", broker.published)
	}
}
