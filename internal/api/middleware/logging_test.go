package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

type hijackableRecorder struct {
	http.ResponseWriter
	hijacked bool
	err      error
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, h.err
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestLoggingKeepsHijacker(t *testing.T) {
	captureLog(t)
	expectedErr := errors.New("hijack invoked")
	recorder := &hijackableRecorder{
		ResponseWriter: httptest.NewRecorder(),
		err:            expectedErr,
	}

	handler := Logging()(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatalf("response writer should implement http.Hijacker")
		}
		if _, _, err := hj.Hijack(); !errors.Is(err, expectedErr) {
			t.Fatalf("unexpected hijack error: %v", err)
		}
	})

	handler(recorder, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if !recorder.hijacked {
		t.Fatal("underlying Hijack was not called")
	}
}

func TestLoggingWritesRequestLine(t *testing.T) {
	buf := captureLog(t)

	var seenID string
	handler := Logging()(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusTooManyRequests)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/citizen/v1/live-chat/messages?x=1", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if seenID != "req-123" || rec.Header().Get("X-Request-ID") != "req-123" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seenID, rec.Header().Get("X-Request-ID"))
	}

	var entry requestLog
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry.Status != http.StatusTooManyRequests || entry.Level != "warn" || entry.URI != "/api/citizen/v1/live-chat/messages?x=1" {
		t.Fatalf("unexpected log entry %+v", entry)
	}
}

func TestLoggingGeneratesRequestID(t *testing.T) {
	captureLog(t)
	handler := Logging()(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated request id")
	}
}
