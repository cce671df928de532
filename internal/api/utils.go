package api

import (
	"clean-care-backend/internal/api/middleware"
	"clean-care-backend/internal/env"
	"clean-care-backend/internal/queue"
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

var defaultOrigins = []string{"http://localhost:3000"}

func allowedOrigins() []string {
	return env.GetList(env.AllowedOrigins, defaultOrigins)
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc adapts f to net/http. f runs on the request queue after
// CORS, logging and the given middleware; a returned *HTTPError becomes its
// status and message, any other error a 500.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, routeMiddleware ...middleware.Middleware) http.HandlerFunc {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   s.cors,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "OPTIONS", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "X-Requested-With", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
	}

	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		s.requestQueueManager.EnqueueJob(job)

		err := <-errc
		if err == nil {
			return
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.ErrorLog != nil {
				log.Printf("%s %s: %v", r.Method, r.URL.Path, httpErr.ErrorLog)
			}
			WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message, Reason: httpErr.Reason})
			return
		}
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
	}

	middlewares := []middleware.Middleware{
		middleware.CORS(corsConfig),
		middleware.Logging(),
	}
	middlewares = append(middlewares, routeMiddleware...)

	return middleware.Chain(baseHandler, middlewares...)
}
