package router

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/api/endpoints"
	"clean-care-backend/internal/api/middleware"
	"clean-care-backend/internal/ratelimit"
	chatservice "clean-care-backend/internal/service/chat"
	"clean-care-backend/internal/websocket"
	"net/http"
)

// CitizenChatRoutes registers the citizen side of live chat and complaint
// chat. Posting is rate limited per citizen.
func CitizenChatRoutes(prefix string, service *chatservice.Service, rooms websocket.RoomPublisher, limiter *ratelimit.Limiter) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		chat := endpoints.NewChatEndpoints(service, rooms)
		auth := middleware.ValidateCitizenJWT

		mux.HandleFunc(prefix+"/live-chat/messages", s.MakeHTTPHandleFunc(chat.CitizenLiveChatMessages, auth, middleware.RateLimit(limiter, "citizen-live-chat")))
		mux.HandleFunc(prefix+"/live-chat/read", s.MakeHTTPHandleFunc(chat.CitizenLiveChatRead, auth))
		mux.HandleFunc(prefix+"/live-chat/unread", s.MakeHTTPHandleFunc(chat.CitizenLiveChatUnread, auth))
		mux.HandleFunc(prefix+"/complaints/{complaintId}/chat", s.MakeHTTPHandleFunc(chat.CitizenComplaintChat, auth, middleware.RateLimit(limiter, "citizen-complaint-chat")))
		mux.HandleFunc(prefix+"/complaints/{complaintId}/chat/read", s.MakeHTTPHandleFunc(chat.CitizenComplaintChatRead, auth))
	}
}

func AdminChatRoutes(prefix string, service *chatservice.Service, rooms websocket.RoomPublisher, limiter *ratelimit.Limiter) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		chat := endpoints.NewChatEndpoints(service, rooms)
		auth := middleware.ValidateAdminJWT

		mux.HandleFunc(prefix+"/live-chat/{userId}/messages", s.MakeHTTPHandleFunc(chat.AdminLiveChatMessages, auth, middleware.RateLimit(limiter, "admin-live-chat")))
		mux.HandleFunc(prefix+"/live-chat/{userId}/read", s.MakeHTTPHandleFunc(chat.AdminLiveChatRead, auth))
		mux.HandleFunc(prefix+"/complaints/{complaintId}/chat", s.MakeHTTPHandleFunc(chat.AdminComplaintChat, auth, middleware.RateLimit(limiter, "admin-complaint-chat")))
		mux.HandleFunc(prefix+"/complaints/{complaintId}/chat/read", s.MakeHTTPHandleFunc(chat.AdminComplaintChatRead, auth))
	}
}
