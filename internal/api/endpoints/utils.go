package endpoints

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/api/middleware"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

// decodeJSON reads a JSON body of at most 64 KiB into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode %s body: %w", r.URL.Path, err),
		}
	}
	return nil
}

// pathParam returns the named wildcard of the matched route pattern.
func pathParam(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.PathValue(name))
	if value == "" {
		return "", &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("path %s has no %s", r.URL.Path, name),
		}
	}
	return value, nil
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func correlationID(w http.ResponseWriter, r *http.Request) string {
	if id := middleware.RequestIDFrom(r.Context()); id != "" {
		return id
	}
	return w.Header().Get("X-Request-ID")
}
