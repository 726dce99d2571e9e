package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]float64{"speed": 0.5})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s, want application/json", ct)
	}

	var resp map[string]float64
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["speed"] != 0.5 {
		t.Errorf("speed = %v, want 0.5", resp["speed"])
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		write func(w http.ResponseWriter)
		code  int
		msg   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad steer") }, http.StatusBadRequest, "bad steer"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no control record x") }, http.StatusNotFound, "no control record x"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "disk full") }, http.StatusInternalServerError, "disk full"},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
		{"custom", func(w http.ResponseWriter) { WriteJSONError(w, http.StatusRequestEntityTooLarge, "too big") }, http.StatusRequestEntityTooLarge, "too big"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tt.msg {
				t.Errorf("error = %q, want %q", resp["error"], tt.msg)
			}
		})
	}
}

func TestWriteJSONOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONOK(rec, []int{1, 2})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "[1,2]\n" {
		t.Errorf("body = %q", got)
	}
}
