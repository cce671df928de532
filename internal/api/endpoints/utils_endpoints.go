package endpoints

import (
	"net/http"
	"time"
)

type UtilsEndpoints interface {
	Health(http.ResponseWriter, *http.Request) error
}

type utilsEndpoints struct {
	service string
	started time.Time
}

func NewUtilsEndpoints(service string) UtilsEndpoints {
	return &utilsEndpoints{service: service, started: time.Now()}
}

func (h *utilsEndpoints) Health(w http.ResponseWriter, r *http.Request) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.service,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}
