// Package testutil provides fixtures and HTTP helpers shared by the package
// tests.
package testutil

import (
	"bytes"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/banshee-data/scanline/internal/db"
	"github.com/banshee-data/scanline/internal/lidar/l1scans"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a bodiless test request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewJSONRequest creates a test request carrying body as JSON.
func NewJSONRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// WallScan returns five readings, 0.1 rad apart, of a flat wall 2 m ahead
// with the middle return pushed back by bump metres. At a 0.5 m threshold
// a bump of 1.0 splits into [0,2] and [2,4]; a bump under 0.5 does not.
func WallScan(bump float64) *l1scans.RawScan {
	angles := []float64{-0.2, -0.1, 0, 0.1, 0.2}
	ranges := make(l1scans.Ranges, len(angles))
	for i, a := range angles {
		ranges[i] = 2 / math.Cos(a)
	}
	ranges[2] += bump
	return &l1scans.RawScan{
		Ranges:         ranges,
		AngleMin:       -0.2,
		AngleIncrement: 0.1,
		SensorID:       "front",
	}
}

// NewTestDB opens a migrated database in a temp dir, closed on cleanup.
func NewTestDB(t testing.TB) *db.DB {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}
