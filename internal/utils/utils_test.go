package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, map[string]string{"key": "value"})

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusCreated, map[string]float64{"temp_max": 30})

		var got map[string]float64
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["temp_max"] != 30 {
			t.Errorf("body[temp_max] = %v; want 30", got["temp_max"])
		}
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusBadRequest)
	}
	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["error"] != http.StatusText(http.StatusBadRequest) {
		t.Errorf("error = %q", got["error"])
	}
	if got["message"] != "invalid input" {
		t.Errorf("message = %q", got["message"])
	}
}

func TestDecodeJSON(t *testing.T) {
	type doc struct {
		TempMax float64 `json:"temp_max"`
	}
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "valid", body: `{"temp_max": 28}`, ok: true},
		{name: "unknown field", body: `{"temp_max": 28, "pressure": 1}`},
		{name: "trailing data", body: `{"temp_max": 28} {}`},
		{name: "not json", body: `temp_max=28`},
		{name: "too large", body: `{"temp_max": 28` + strings.Repeat(" ", maxBodyBytes) + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body))
			var d doc
			err := DecodeJSON(httptest.NewRecorder(), r, &d)
			if tt.ok && (err != nil || d.TempMax != 28) {
				t.Errorf("DecodeJSON = %v, %+v", err, d)
			}
			if !tt.ok && err == nil {
				t.Error("DecodeJSON accepted bad input")
			}
		})
	}
}
