package middleware

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"clean-care-backend/utils"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// statusRecorder keeps Flusher and Hijacker reachable so websocket upgrades
// work behind the logger.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("statusRecorder: underlying ResponseWriter does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

type requestLog struct {
	Time      string `json:"time"`
	Level     string `json:"level"`
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Route     string `json:"route,omitempty"`
	URI       string `json:"uri"`
	Status    int    `json:"status"`
	Size      int    `json:"size"`
	Duration  string `json:"duration"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent"`
}

// Logging writes one JSON line per request and tags the request with an id,
// reusing the caller's X-Request-ID when present.
func Logging() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			next(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID)))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			data, err := json.Marshal(requestLog{
				Time:      start.UTC().Format(time.RFC3339),
				Level:     levelFor(status),
				RequestID: reqID,
				Method:    r.Method,
				Route:     r.Pattern,
				URI:       r.URL.RequestURI(),
				Status:    status,
				Size:      rec.size,
				Duration:  time.Since(start).String(),
				ClientIP:  utils.RealClientIP(r),
				UserAgent: r.UserAgent(),
			})
			if err != nil {
				log.Printf("error marshaling request log: %v", err)
				return
			}
			log.Println(string(data))
		}
	}
}

// RequestIDFrom returns the id Logging assigned to the request.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func levelFor(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "warn"
	default:
		return "info"
	}
}
