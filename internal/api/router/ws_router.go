package router

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/api/endpoints"
	"net/http"
)

func WebsocketRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		ws := endpoints.NewWebsocketEndpoints(s.Handler())

		mux.HandleFunc(prefix+"/chat/{chatType}/{conversationId}", s.MakeHTTPHandleFunc(ws.ChatWebsocket))
		mux.HandleFunc(prefix+"/notifications/{chatType}", s.MakeHTTPHandleFunc(ws.AdminNotificationsWebsocket))
	}
}
