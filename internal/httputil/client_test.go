package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	if got := NewClient(0).Timeout; got != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", got)
	}
	if got := NewClient(time.Second).Timeout; got != time.Second {
		t.Errorf("timeout = %v, want 1s", got)
	}
}

func TestNewClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONOK(w, map[string]string{"path": r.URL.Path})
	}))
	defer server.Close()

	var d Doer = NewClient(time.Second)
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/health", nil)
	resp, err := d.Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	var body map[string]string
	if err := DecodeJSON(resp, &body); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if body["path"] != "/health" {
		t.Errorf("path = %q, want /health", body["path"])
	}
}

func TestMockClient_QueuedResponses(t *testing.T) {
	mock := NewMockClient().
		AddResponse(http.StatusCreated, `{"id":1}`).
		AddError(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodPost, "http://scanline.local/api", strings.NewReader(`{"ranges":[1]}`))
	resp, err := mock.Do(req)
	if err != nil {
		t.Fatalf("first Do failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"id":1}` {
		t.Errorf("body = %q", body)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://scanline.local/api", nil)
	if _, err := mock.Do(req); err == nil || err.Error() != "connection refused" {
		t.Errorf("second Do error = %v, want connection refused", err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://scanline.local/api", nil)
	resp, err = mock.Do(req)
	if err != nil {
		t.Fatalf("drained Do failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("drained status = %d, want 200", resp.StatusCode)
	}
}

func TestMockClient_RecordsRequests(t *testing.T) {
	mock := NewMockClient()
	req, _ := http.NewRequest(http.MethodPost, "http://scanline.local/a", strings.NewReader("payload"))
	mock.Do(req)
	req, _ = http.NewRequest(http.MethodGet, "http://scanline.local/b", nil)
	mock.Do(req)

	reqs := mock.Requests()
	if len(reqs) != 2 {
		t.Fatalf("recorded %d requests, want 2", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[1].URL.Path != "/b" {
		t.Errorf("unexpected requests: %s %s", reqs[0].Method, reqs[1].URL.Path)
	}
	if string(mock.Body(0)) != "payload" {
		t.Errorf("body(0) = %q, want payload", mock.Body(0))
	}
	if mock.Body(1) != nil {
		t.Errorf("body(1) = %q, want nil", mock.Body(1))
	}
	if mock.Body(5) != nil {
		t.Error("out of range body should be nil")
	}
}
