package controller

import (
	"context"
	"net/http"

	"ecosense/internal/alert"
	"ecosense/internal/bridge/repository"
	"ecosense/internal/bridge/types"
)

type ThresholdsService interface {
	Get(ctx context.Context) (types.Thresholds, error)
	Put(ctx context.Context, b alert.Bounds) (types.Thresholds, bool, error)
}

type BridgeController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type bridgeControllerImpl struct {
	repository repository.ReadingsRepository
	thresholds ThresholdsService
}

func NewBridgeController(repository repository.ReadingsRepository, thresholds ThresholdsService) BridgeController {
	return &bridgeControllerImpl{repository: repository, thresholds: thresholds}
}

func (c *bridgeControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/readings/latest", c.handleLatest)
	mux.HandleFunc("GET /api/readings", c.handleReadings)
	mux.HandleFunc("GET /api/readings.csv", c.handleReadingsCSV)
	mux.HandleFunc("GET /api/thresholds", c.handleGetThresholds)
	mux.HandleFunc("PUT /api/thresholds", c.handlePutThresholds)
}
