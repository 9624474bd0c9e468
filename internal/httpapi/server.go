package httpapi

import (
	"net/http"
	"time"

	"ecosense/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux, rec RequestRecorder) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(mux, rec),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
