package router

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/api/endpoints"
	"clean-care-backend/internal/api/middleware"
	botservice "clean-care-backend/internal/service/bot"
	"net/http"
)

func AdminBotRoutes(prefix string, service *botservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		bot := endpoints.NewBotEndpoints(service)
		auth := middleware.ValidateAdminJWT

		mux.HandleFunc(prefix+"/bot/messages", s.MakeHTTPHandleFunc(bot.BotMessages, auth))
		mux.HandleFunc(prefix+"/bot/messages/{chatType}/{messageKey}", s.MakeHTTPHandleFunc(bot.BotMessage, auth))
		mux.HandleFunc(prefix+"/bot/rules/{chatType}", s.MakeHTTPHandleFunc(bot.BotRule, auth))
		mux.HandleFunc(prefix+"/bot/state/{chatType}/{conversationId}", s.MakeHTTPHandleFunc(bot.BotState, auth))
		mux.HandleFunc(prefix+"/bot/analytics", s.MakeHTTPHandleFunc(bot.BotAnalytics, auth))
	}
}
