package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/scanline/internal/monitoring"
)

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		msg    string
	}{
		{"json error", func(w http.ResponseWriter) { WriteJSONError(w, http.StatusTeapot, "short and stout") }, http.StatusTeapot, "short and stout"},
		{"method not allowed", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad x") }, http.StatusBadRequest, "bad x"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError, "boom"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no run") }, http.StatusNotFound, "no run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %s, want application/json", ct)
			}
			var body ErrorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Error != tt.msg {
				t.Errorf("error = %q, want %q", body.Error, tt.msg)
			}
		})
	}
}

func TestWriteJSONOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 42})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["count"] != 42 {
		t.Errorf("count = %d, want 42", resp["count"])
	}
}

func TestWriteJSON_EncodeFailureIsLogged(t *testing.T) {
	var logged []string
	prev := monitoring.Logf
	defer monitoring.SetLogger(prev)
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, format)
	})

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]float64{"x": math.NaN()})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(logged) != 1 {
		t.Fatalf("logged %d messages, want 1", len(logged))
	}
}

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var v struct {
		ID int `json:"id"`
	}
	if err := DecodeJSON(response(http.StatusOK, `{"id": 7}`), &v); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if v.ID != 7 {
		t.Errorf("id = %d, want 7", v.ID)
	}

	if err := DecodeJSON(response(http.StatusNoContent, ""), nil); err != nil {
		t.Errorf("DecodeJSON with nil target failed: %v", err)
	}

	if err := DecodeJSON(response(http.StatusOK, `{"id":`), &v); err == nil {
		t.Error("expected error for truncated body")
	}
}

func TestDecodeJSON_StatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *http.Response
		msg  string
	}{
		{"json error body", response(http.StatusNotFound, `{"error":"run \"x\" not found"}`), `run "x" not found`},
		{"plain body", response(http.StatusBadGateway, "upstream down"), "upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodeJSON(tt.resp, nil)
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("error %v is not a *StatusError", err)
			}
			if se.StatusCode != tt.resp.StatusCode {
				t.Errorf("status = %d, want %d", se.StatusCode, tt.resp.StatusCode)
			}
			if se.Message != tt.msg {
				t.Errorf("message = %q, want %q", se.Message, tt.msg)
			}
		})
	}
}
