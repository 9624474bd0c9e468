package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"ecosense/internal/utils"
)

// ConnectionChecker reports whether the broker session is up.
type ConnectionChecker interface {
	IsConnected() bool
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db     *sql.DB
	broker ConnectionChecker
}

func NewHealthchecker(db *sql.DB, broker ConnectionChecker) healthchecker {
	return &healthcheckerImpl{db: db, broker: broker}
}

// handleHealthz fails only on the database. A missing broker is reported but
// the bridge keeps serving stored data without it.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	mqttStatus := "disconnected"
	if h.broker != nil && h.broker.IsConnected() {
		mqttStatus = "connected"
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mqtt":   mqttStatus,
	})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, broker ConnectionChecker) {
	healthchecker := NewHealthchecker(db, broker)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
