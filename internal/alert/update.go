package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedConfig = errors.New("malformed config payload")

// Update is a partial bounds change. Nil fields are left as they are.
type Update struct {
	TempMax  *float64 `json:"temp_max"`
	TempMin  *float64 `json:"temp_min"`
	HumidMax *float64 `json:"umid_max"`
	HumidMin *float64 `json:"umid_min"`
}

// Empty reports whether the update names none of the known keys.
func (u Update) Empty() bool {
	return u.TempMax == nil && u.TempMin == nil && u.HumidMax == nil && u.HumidMin == nil
}

// ParseUpdate decodes a config payload. Keys match exactly; anything else is
// ignored. A body that is not a JSON object, or a known key holding something
// other than a number or null, fails the whole payload with ErrMalformedConfig.
func ParseUpdate(payload []byte) (Update, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Update{}, fmt.Errorf("%w: not a JSON object", ErrMalformedConfig)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	var u Update
	fields := []struct {
		key string
		dst **float64
	}{
		{"temp_max", &u.TempMax},
		{"temp_min", &u.TempMin},
		{"umid_max", &u.HumidMax},
		{"umid_min", &u.HumidMin},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return Update{}, fmt.Errorf("%w: %s: %v", ErrMalformedConfig, f.key, err)
		}
	}
	return u, nil
}

// Apply returns b with every field named by u overwritten.
func (u Update) Apply(b Bounds) Bounds {
	if u.TempMax != nil {
		b.TempMax = *u.TempMax
	}
	if u.TempMin != nil {
		b.TempMin = *u.TempMin
	}
	if u.HumidMax != nil {
		b.HumidMax = *u.HumidMax
	}
	if u.HumidMin != nil {
		b.HumidMin = *u.HumidMin
	}
	return b
}
