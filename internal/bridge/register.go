// Package bridge stores the station's readings and serves and publishes its
// alert thresholds.
package bridge

import (
	"database/sql"
	"log/slog"
	"net/http"

	"ecosense/internal/bridge/controller"
	"ecosense/internal/bridge/repository"
	"ecosense/internal/bridge/service"
	"ecosense/internal/config"
)

// Broker is the MQTT side the bridge needs. Handlers must be registered
// before the session connects.
type Broker interface {
	Handle(topic string, h func(topic string, payload []byte))
	service.Publisher
}

type Feature struct {
	Ingest     *service.Ingest
	Thresholds *service.Thresholds
}

// RegisterFeature wires the repository, services and HTTP routes and
// subscribes the ingest handler to the reading topics.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, broker Broker, cfg config.Config, rec service.Recorder, logger *slog.Logger) *Feature {
	repo := repository.NewRepository(db)

	ingest := service.NewIngest(repo, cfg.TopicTemperature, cfg.TopicHumidity, rec, logger)
	for _, topic := range ingest.Topics() {
		broker.Handle(topic, ingest.Handle)
	}

	thresholds := service.NewThresholds(repo, broker, cfg.TopicConfig, rec, logger)
	controller.NewBridgeController(repo, thresholds).RegisterRoutes(mux)

	return &Feature{Ingest: ingest, Thresholds: thresholds}
}
