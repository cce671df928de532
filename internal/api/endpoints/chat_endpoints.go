package endpoints

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/api/middleware"
	"clean-care-backend/internal/dto"
	internaljwt "clean-care-backend/internal/jwt"
	"clean-care-backend/internal/model"
	chatservice "clean-care-backend/internal/service/chat"
	"clean-care-backend/internal/websocket"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	eventMessageCreated = "message.created"
	eventBotMessage     = "bot.message"
)

type ChatEndpoints interface {
	CitizenLiveChatMessages(http.ResponseWriter, *http.Request) error
	CitizenLiveChatRead(http.ResponseWriter, *http.Request) error
	CitizenLiveChatUnread(http.ResponseWriter, *http.Request) error
	CitizenComplaintChat(http.ResponseWriter, *http.Request) error
	CitizenComplaintChatRead(http.ResponseWriter, *http.Request) error

	AdminLiveChatMessages(http.ResponseWriter, *http.Request) error
	AdminLiveChatRead(http.ResponseWriter, *http.Request) error
	AdminComplaintChat(http.ResponseWriter, *http.Request) error
	AdminComplaintChatRead(http.ResponseWriter, *http.Request) error
}

type chatEndpoints struct {
	service *chatservice.Service
	rooms   websocket.RoomPublisher
}

// NewChatEndpoints serves the chat routes. rooms may be nil, in which case
// nothing is pushed to websocket clients.
func NewChatEndpoints(service *chatservice.Service, rooms websocket.RoomPublisher) ChatEndpoints {
	return &chatEndpoints{service: service, rooms: rooms}
}

// Citizens own exactly one live chat, keyed by their user id.

func (h *chatEndpoints) CitizenLiveChatMessages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			identity, err := callerIdentity(r)
			if err != nil {
				return err
			}
			return h.list(w, r, model.ChatTypeLive, identity.ID)
		},
		http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
			identity, err := callerIdentity(r)
			if err != nil {
				return err
			}
			return h.send(w, r, model.ChatTypeLive, identity.ID, model.SenderCitizen, identity)
		},
	})
}

func (h *chatEndpoints) CitizenLiveChatRead(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch: func(w http.ResponseWriter, r *http.Request) error {
			identity, err := callerIdentity(r)
			if err != nil {
				return err
			}
			return h.markRead(w, r, model.ChatTypeLive, identity.ID, model.SenderCitizen)
		},
	})
}

func (h *chatEndpoints) CitizenLiveChatUnread(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			identity, err := callerIdentity(r)
			if err != nil {
				return err
			}
			unread, err := h.service.UnreadCount(r.Context(), model.ChatTypeLive, identity.ID, model.SenderCitizen)
			if err != nil {
				return chatServiceError(err)
			}
			return WriteJSON(w, http.StatusOK, dto.UnreadCountResponse{Unread: unread})
		},
	})
}

func (h *chatEndpoints) CitizenComplaintChat(w http.ResponseWriter, r *http.Request) error {
	return h.complaintChat(w, r, model.SenderCitizen)
}

func (h *chatEndpoints) CitizenComplaintChatRead(w http.ResponseWriter, r *http.Request) error {
	return h.complaintChatRead(w, r, model.SenderCitizen)
}

func (h *chatEndpoints) AdminLiveChatMessages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			userID, err := pathParam(r, "userId")
			if err != nil {
				return err
			}
			return h.list(w, r, model.ChatTypeLive, userID)
		},
		http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
			identity, err := callerIdentity(r)
			if err != nil {
				return err
			}
			userID, err := pathParam(r, "userId")
			if err != nil {
				return err
			}
			return h.send(w, r, model.ChatTypeLive, userID, model.SenderAdmin, identity)
		},
	})
}

func (h *chatEndpoints) AdminLiveChatRead(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch: func(w http.ResponseWriter, r *http.Request) error {
			userID, err := pathParam(r, "userId")
			if err != nil {
				return err
			}
			return h.markRead(w, r, model.ChatTypeLive, userID, model.SenderAdmin)
		},
	})
}

func (h *chatEndpoints) AdminComplaintChat(w http.ResponseWriter, r *http.Request) error {
	return h.complaintChat(w, r, model.SenderAdmin)
}

func (h *chatEndpoints) AdminComplaintChatRead(w http.ResponseWriter, r *http.Request) error {
	return h.complaintChatRead(w, r, model.SenderAdmin)
}

func (h *chatEndpoints) complaintChat(w http.ResponseWriter, r *http.Request, sender model.SenderType) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			complaintID, err := pathParam(r, "complaintId")
			if err != nil {
				return err
			}
			return h.list(w, r, model.ChatTypeComplaint, complaintID)
		},
		http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
			identity, err := callerIdentity(r)
			if err != nil {
				return err
			}
			complaintID, err := pathParam(r, "complaintId")
			if err != nil {
				return err
			}
			return h.send(w, r, model.ChatTypeComplaint, complaintID, sender, identity)
		},
	})
}

func (h *chatEndpoints) complaintChatRead(w http.ResponseWriter, r *http.Request, reader model.SenderType) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch: func(w http.ResponseWriter, r *http.Request) error {
			complaintID, err := pathParam(r, "complaintId")
			if err != nil {
				return err
			}
			return h.markRead(w, r, model.ChatTypeComplaint, complaintID, reader)
		},
	})
}

func (h *chatEndpoints) list(w http.ResponseWriter, r *http.Request, chatType model.ChatType, conversationID string) error {
	result, err := h.service.ListMessages(r.Context(), chatType, conversationID, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		return chatServiceError(err)
	}

	resp := dto.ListChatMessagesResponse{
		Messages: make([]dto.ChatMessageResponse, len(result.Messages)),
		Pagination: dto.Pagination{
			Page:    result.Page,
			Limit:   result.Limit,
			Total:   result.Total,
			HasMore: result.HasMore,
		},
	}
	for i, msg := range result.Messages {
		resp.Messages[i] = toChatMessageResponse(msg)
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *chatEndpoints) send(w http.ResponseWriter, r *http.Request, chatType model.ChatType, conversationID string, sender model.SenderType, identity internaljwt.Identity) error {
	var req dto.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	params := chatservice.MessageParams{
		ChatType:       chatType,
		ConversationID: conversationID,
		SenderID:       identity.ID,
		Message:        req.Message,
		ImageURL:       req.ImageURL,
		VoiceURL:       req.VoiceURL,
		CorrelationID:  correlationID(w, r),
	}

	var resp dto.SendMessageResponse
	if sender == model.SenderCitizen {
		result, err := h.service.HandleCitizenMessage(r.Context(), params)
		if err != nil {
			return chatServiceError(err)
		}
		resp.Message = toChatMessageResponse(result.Message)
		h.broadcast(r.Context(), eventMessageCreated, result.Message)
		if result.BotMessage != nil {
			bot := toChatMessageResponse(*result.BotMessage)
			resp.BotMessage = &bot
			h.broadcast(r.Context(), eventBotMessage, *result.BotMessage)
		}
	} else {
		result, err := h.service.HandleAdminReply(r.Context(), params)
		if err != nil {
			return chatServiceError(err)
		}
		resp.Message = toChatMessageResponse(result.Message)
		h.broadcast(r.Context(), eventMessageCreated, result.Message)
	}

	return api.WriteJSON(w, http.StatusCreated, resp)
}

func (h *chatEndpoints) markRead(w http.ResponseWriter, r *http.Request, chatType model.ChatType, conversationID string, reader model.SenderType) error {
	updated, err := h.service.MarkAsRead(r.Context(), chatType, conversationID, reader)
	if err != nil {
		return chatServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.MarkReadResponse{Updated: updated})
}

// broadcast pushes msg to the conversation room and the admin room of its
// chat type.
func (h *chatEndpoints) broadcast(ctx context.Context, eventType string, msg model.ChatMessageItem) {
	if h.rooms == nil {
		return
	}

	payload := dto.RoomEvent{
		Type:          eventType,
		Message:       toChatMessageResponse(msg),
		BroadcastedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, roomID := range []string{
		websocket.ChatRoom(msg.ChatType, msg.ConversationID),
		websocket.AdminRoom(msg.ChatType),
	} {
		if err := h.rooms.Publish(ctx, roomID, payload); err != nil {
			log.Printf("failed to publish websocket payload for room %s: %v", roomID, err)
		}
	}
}

func callerIdentity(r *http.Request) (internaljwt.Identity, error) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok || strings.TrimSpace(identity.ID) == "" {
		return internaljwt.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("no caller identity on %s", r.URL.Path),
		}
	}
	return identity, nil
}

func chatServiceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *chatservice.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("chat service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	}

	switch svcErr.Code {
	case chatservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, Reason: string(svcErr.Reason), ErrorLog: logErr}
	case chatservice.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: logErr}
	case chatservice.ErrorCodeUnavailable:
		return &HTTPError{StatusCode: http.StatusServiceUnavailable, Message: "Chat is temporarily unavailable, please retry", ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}

func toChatMessageResponse(msg model.ChatMessageItem) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:             msg.MessageID,
		ChatType:       string(msg.ChatType),
		ConversationID: msg.ConversationID,
		SenderType:     string(msg.SenderType),
		SenderID:       msg.SenderID,
		Message:        msg.Message,
		ImageURL:       msg.ImageURL,
		VoiceURL:       msg.VoiceURL,
		Read:           msg.Read,
		CreatedAt:      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
