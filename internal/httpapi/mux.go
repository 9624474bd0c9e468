package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux registers the health check and, when metrics is non-nil, the
// Prometheus scrape endpoint. Feature routes are added by their packages.
func NewMux(db *sql.DB, broker ConnectionChecker, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, broker)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}
