package router

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/api/endpoints"
	"net/http"
)

func UtilsRoutes(prefix, service string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		utilsEndpoints := endpoints.NewUtilsEndpoints(service)
		mux.HandleFunc(prefix+"/health", s.MakeHTTPHandleFunc(utilsEndpoints.Health))
	}
}
