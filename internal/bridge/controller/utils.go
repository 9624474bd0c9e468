package controller

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"ecosense/internal/alert"
	"ecosense/internal/bridge/types"
)

const (
	defaultHistoryLimit = 200
	maxHistoryLimit     = 1000

	// csvTimeLayout matches what the CSV importer reads.
	csvTimeLayout = "2006-01-02 15:04:05.000000"
)

func parseReadingsQuery(r *http.Request) (kind types.Kind, limit int, err error) {
	q := r.URL.Query()

	s := q.Get("kind")
	if s == "" {
		return "", 0, errors.New("missing 'kind' (temperature or humidity)")
	}
	kind, err = types.ParseKind(s)
	if err != nil {
		return "", 0, err
	}

	limit = defaultHistoryLimit
	if s := q.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return "", 0, errors.New("invalid 'limit' (expected integer)")
		}
		if n <= 0 {
			return "", 0, errors.New("'limit' must be > 0")
		}
		if n > maxHistoryLimit {
			return "", 0, fmt.Errorf("'limit' must be <= %d", maxHistoryLimit)
		}
		limit = n
	}
	return kind, limit, nil
}

// thresholdsBody is the PUT document. Every key is required.
type thresholdsBody struct {
	TempMin  *float64 `json:"temp_min"`
	TempMax  *float64 `json:"temp_max"`
	HumidMin *float64 `json:"umid_min"`
	HumidMax *float64 `json:"umid_max"`
}

func (b thresholdsBody) bounds() (alert.Bounds, error) {
	var missing []string
	for name, v := range map[string]*float64{
		"temp_min": b.TempMin, "temp_max": b.TempMax,
		"umid_min": b.HumidMin, "umid_max": b.HumidMax,
	} {
		if v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return alert.Bounds{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return alert.Bounds{TempMin: *b.TempMin, TempMax: *b.TempMax, HumidMin: *b.HumidMin, HumidMax: *b.HumidMax}, nil
}

// kpi builds the KPI from the newest readings, newest first.
func kpi(kind types.Kind, latest []types.Reading) *types.KPI {
	if len(latest) == 0 {
		return nil
	}
	k := &types.KPI{
		Kind:  kind,
		Value: latest[0].Value,
		Unit:  kind.Unit(),
		Time:  latest[0].Time,
	}
	if len(latest) > 1 {
		k.Delta = latest[0].Value - latest[1].Value
	}
	return k
}
