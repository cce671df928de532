package endpoints

import (
	internaljwt "clean-care-backend/internal/jwt"
	"clean-care-backend/internal/model"
	"clean-care-backend/internal/websocket"
	"clean-care-backend/utils"
	"fmt"
	"net/http"
)

type WebsocketEndpoints interface {
	ChatWebsocket(http.ResponseWriter, *http.Request) error
	AdminNotificationsWebsocket(http.ResponseWriter, *http.Request) error
}

type websocketEndpoints struct {
	handler *websocket.Handler
}

func NewWebsocketEndpoints(handler *websocket.Handler) WebsocketEndpoints {
	return &websocketEndpoints{handler: handler}
}

// ChatWebsocket joins the caller to chat:<chatType>:<conversationId>. Browsers
// cannot set headers on websocket requests, so the token may come in the query.
func (h *websocketEndpoints) ChatWebsocket(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("websocket handler missing"),
		}
	}

	chatType, err := chatTypeParam(r)
	if err != nil {
		return err
	}
	conversationID, err := pathParam(r, "conversationId")
	if err != nil {
		return err
	}

	role := r.URL.Query().Get("role")
	token := requestToken(r)

	switch role {
	case "citizen":
		identity, err := internaljwt.ParseToken(token, internaljwt.RoleCitizen)
		if err != nil {
			return unauthorized(err)
		}
		if chatType == model.ChatTypeLive && identity.ID != conversationID {
			return &HTTPError{
				StatusCode: http.StatusForbidden,
				Message:    "Token does not match conversation",
				ErrorLog:   fmt.Errorf("websocket conversation mismatch: %s vs %s", identity.ID, conversationID),
			}
		}
		h.handler.JoinRoom(w, r, websocket.ChatRoom(chatType, conversationID), identity.ID)
		return nil

	case "admin":
		identity, err := internaljwt.ParseToken(token, internaljwt.RoleAdmin)
		if err != nil {
			return unauthorized(err)
		}
		h.handler.JoinRoom(w, r, websocket.ChatRoom(chatType, conversationID), identity.ID)
		return nil

	default:
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Missing or invalid role parameter",
			ErrorLog:   fmt.Errorf("websocket role invalid: %q", role),
		}
	}
}

// AdminNotificationsWebsocket streams every message of one chat type.
func (h *websocketEndpoints) AdminNotificationsWebsocket(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("notification websocket handler missing"),
		}
	}

	chatType, err := chatTypeParam(r)
	if err != nil {
		return err
	}

	token := requestToken(r)
	if token == "" {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Missing token",
			ErrorLog:   fmt.Errorf("notification websocket missing token"),
		}
	}
	identity, err := internaljwt.ParseToken(token, internaljwt.RoleAdmin)
	if err != nil {
		return unauthorized(err)
	}

	h.handler.JoinRoom(w, r, websocket.AdminRoom(chatType), identity.ID)
	return nil
}

func chatTypeParam(r *http.Request) (model.ChatType, error) {
	raw, err := pathParam(r, "chatType")
	if err != nil {
		return "", err
	}
	chatType, ok := model.ParseChatType(raw)
	if !ok {
		return "", &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid chat type",
			ErrorLog:   fmt.Errorf("invalid chat type %q", raw),
		}
	}
	return chatType, nil
}

func requestToken(r *http.Request) string {
	return utils.FirstNonEmpty(r.URL.Query().Get("token"), internaljwt.FromBearer(r.Header.Get("Authorization")))
}

func unauthorized(err error) error {
	return &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: err}
}
