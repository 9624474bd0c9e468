package controller

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"ecosense/internal/bridge/repository"
	"ecosense/internal/bridge/service"
	"ecosense/internal/bridge/types"
	"ecosense/internal/utils"
)

func (c *bridgeControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	var out types.Latest
	for _, kind := range []types.Kind{types.KindTemperature, types.KindHumidity} {
		latest, err := c.repository.GetLatestReadings(r.Context(), kind, 2)
		if err != nil {
			slog.Error("latest: get readings failed", "kind", kind, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
			return
		}
		if kind == types.KindTemperature {
			out.Temperature = kpi(kind, latest)
		} else {
			out.Humidity = kpi(kind, latest)
		}
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (c *bridgeControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	kind, limit, err := parseReadingsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.repository.GetLatestReadings(r.Context(), kind, limit)
	if err != nil {
		slog.Error("readings: get readings failed", "kind", kind, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"kind":  kind,
		"unit":  kind.Unit(),
		"limit": limit,
		"items": readings,
	})
}

func (c *bridgeControllerImpl) handleReadingsCSV(w http.ResponseWriter, r *http.Request) {
	kind, limit, err := parseReadingsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.repository.GetLatestReadings(r.Context(), kind, limit)
	if err != nil {
		slog.Error("readings csv: get readings failed", "kind", kind, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, kind))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "value"})
	// Oldest first, as a time series.
	for i := len(readings) - 1; i >= 0; i-- {
		rd := readings[i]
		_ = cw.Write([]string{
			rd.Time.UTC().Format(csvTimeLayout),
			strconv.FormatFloat(rd.Value, 'f', -1, 64),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("readings csv: write response failed", "error", err)
	}
}

func (c *bridgeControllerImpl) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	t, err := c.thresholds.Get(r.Context())
	if errors.Is(err, repository.ErrNoThresholds) {
		utils.WriteError(w, http.StatusNotFound, "thresholds not configured")
		return
	}
	if err != nil {
		slog.Error("thresholds: get failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load thresholds")
		return
	}
	utils.WriteJSON(w, http.StatusOK, t)
}

func (c *bridgeControllerImpl) handlePutThresholds(w http.ResponseWriter, r *http.Request) {
	var body thresholdsBody
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := body.bounds()
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, published, err := c.thresholds.Put(r.Context(), b)
	if errors.Is(err, service.ErrInvalidThresholds) {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		slog.Error("thresholds: put failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to store thresholds")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"thresholds": t,
		"published":  published,
	})
}
