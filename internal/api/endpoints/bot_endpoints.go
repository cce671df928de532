package endpoints

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/dto"
	"clean-care-backend/internal/model"
	botservice "clean-care-backend/internal/service/bot"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const analyticsDateLayout = "2006-01-02"

type BotEndpoints interface {
	BotMessages(http.ResponseWriter, *http.Request) error
	BotMessage(http.ResponseWriter, *http.Request) error
	BotRule(http.ResponseWriter, *http.Request) error
	BotState(http.ResponseWriter, *http.Request) error
	BotAnalytics(http.ResponseWriter, *http.Request) error
}

type botEndpoints struct {
	service *botservice.Service
}

func NewBotEndpoints(service *botservice.Service) BotEndpoints {
	return &botEndpoints{service: service}
}

func (h *botEndpoints) BotMessages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListMessages,
		http.MethodPost: h.handleCreateMessage,
	})
}

func (h *botEndpoints) BotMessage(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut:    h.handleUpdateMessage,
		http.MethodDelete: h.handleDeleteMessage,
	})
}

func (h *botEndpoints) BotRule(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleGetRule,
		http.MethodPut: h.handleUpdateRule,
	})
}

func (h *botEndpoints) BotState(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleGetState,
	})
}

func (h *botEndpoints) BotAnalytics(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleAnalytics,
	})
}

func (h *botEndpoints) handleListMessages(w http.ResponseWriter, r *http.Request) error {
	chatType, ok := model.ParseChatType(r.URL.Query().Get("chatType"))
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "chatType query parameter is required",
			ErrorLog:   fmt.Errorf("invalid chatType %q", r.URL.Query().Get("chatType")),
		}
	}

	messages, err := h.service.ListMessages(r.Context(), chatType)
	if err != nil {
		return botServiceError(err)
	}

	resp := dto.ListBotMessagesResponse{Messages: make([]dto.BotMessageResponse, len(messages))}
	for i, msg := range messages {
		resp.Messages[i] = toBotMessageResponse(msg)
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *botEndpoints) handleCreateMessage(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateBotMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	chatType, _ := model.ParseChatType(req.ChatType)
	if chatType == "" {
		chatType = model.ChatType(req.ChatType)
	}

	msg, err := h.service.CreateMessage(r.Context(), botservice.CreateMessageParams{
		ChatType:         chatType,
		MessageKey:       req.MessageKey,
		Content:          req.Content,
		ContentLocalized: req.ContentLocalized,
		StepNumber:       req.StepNumber,
		DisplayOrder:     req.DisplayOrder,
		IsActive:         req.IsActive,
	})
	if err != nil {
		return botServiceError(err)
	}
	return api.WriteJSON(w, http.StatusCreated, toBotMessageResponse(msg))
}

func (h *botEndpoints) handleUpdateMessage(w http.ResponseWriter, r *http.Request) error {
	chatType, err := chatTypeParam(r)
	if err != nil {
		return err
	}
	messageKey, err := pathParam(r, "messageKey")
	if err != nil {
		return err
	}

	var req dto.UpdateBotMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	msg, err := h.service.UpdateMessage(r.Context(), chatType, messageKey, botservice.UpdateMessageParams{
		Content:          req.Content,
		ContentLocalized: req.ContentLocalized,
		StepNumber:       req.StepNumber,
		DisplayOrder:     req.DisplayOrder,
		IsActive:         req.IsActive,
	})
	if err != nil {
		return botServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, toBotMessageResponse(msg))
}

func (h *botEndpoints) handleDeleteMessage(w http.ResponseWriter, r *http.Request) error {
	chatType, err := chatTypeParam(r)
	if err != nil {
		return err
	}
	messageKey, err := pathParam(r, "messageKey")
	if err != nil {
		return err
	}

	if err := h.service.DeleteMessage(r.Context(), chatType, messageKey); err != nil {
		return botServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Bot message deleted"})
}

func (h *botEndpoints) handleGetRule(w http.ResponseWriter, r *http.Request) error {
	chatType, err := chatTypeParam(r)
	if err != nil {
		return err
	}

	rule, stored, err := h.service.GetRule(r.Context(), chatType)
	if err != nil {
		return botServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, toTriggerRuleResponse(rule, stored))
}

func (h *botEndpoints) handleUpdateRule(w http.ResponseWriter, r *http.Request) error {
	chatType, err := chatTypeParam(r)
	if err != nil {
		return err
	}

	var req dto.UpdateTriggerRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	rule, err := h.service.UpsertRule(r.Context(), chatType, botservice.RulePatch{
		IsEnabled:              req.IsEnabled,
		ReactivationThreshold:  req.ReactivationThreshold,
		ResetStepsOnReactivate: req.ResetStepsOnReactivate,
	})
	if err != nil {
		return botServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, toTriggerRuleResponse(rule, true))
}

func (h *botEndpoints) handleGetState(w http.ResponseWriter, r *http.Request) error {
	chatType, err := chatTypeParam(r)
	if err != nil {
		return err
	}
	conversationID, err := pathParam(r, "conversationId")
	if err != nil {
		return err
	}

	view, err := h.service.ConversationState(r.Context(), chatType, conversationID)
	if err != nil {
		return botServiceError(err)
	}

	state := view.State
	return WriteJSON(w, http.StatusOK, dto.ConversationStateResponse{
		ChatType:         string(state.ChatType),
		ConversationID:   state.ConversationID,
		Phase:            string(view.Phase),
		Exists:           view.Exists,
		CurrentStep:      state.CurrentStep,
		IsActive:         state.IsActive,
		UserMessageCount: state.UserMessageCount,
		LastAdminReplyAt: formatOptionalTime(state.LastAdminReplyAt),
		LastBotMessageAt: formatOptionalTime(state.LastBotMessageAt),
	})
}

// handleAnalytics reports trigger and admin-reply counts. start and end are
// inclusive YYYY-MM-DD dates; chatType is optional.
func (h *botEndpoints) handleAnalytics(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	var query botservice.AnalyticsQuery

	if raw := strings.TrimSpace(q.Get("chatType")); raw != "" {
		chatType, ok := model.ParseChatType(raw)
		if !ok {
			return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Invalid chat type", ErrorLog: fmt.Errorf("invalid chatType %q", raw)}
		}
		query.ChatType = chatType
	}

	for name, dst := range map[string]*time.Time{"start": &query.Start, "end": &query.End} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(analyticsDateLayout, raw)
		if err != nil {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    fmt.Sprintf("Invalid %s date, expected YYYY-MM-DD", name),
				ErrorLog:   err,
			}
		}
		*dst = parsed
	}

	report, err := h.service.Analytics(r.Context(), query)
	if err != nil {
		return botServiceError(err)
	}

	resp := dto.BotAnalyticsResponse{
		TotalTriggers:     report.TotalTriggers,
		TotalAdminReplies: report.TotalAdminReplies,
		AdminReplyRate:    report.AdminReplyRate,
		Steps:             make([]dto.StepStatsResponse, len(report.Steps)),
	}
	for i, step := range report.Steps {
		resp.Steps[i] = dto.StepStatsResponse{
			StepNumber:   step.Step,
			Triggers:     step.Triggers,
			AdminReplies: step.Replies,
		}
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func botServiceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *botservice.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("bot service: %w", err),
		}
	}

	logErr := error(svcErr)
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	}

	switch svcErr.Code {
	case botservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case botservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case botservice.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}

func toBotMessageResponse(msg model.BotMessageConfigItem) dto.BotMessageResponse {
	return dto.BotMessageResponse{
		ChatType:         string(msg.ChatType),
		MessageKey:       msg.MessageKey,
		Content:          msg.Content,
		ContentLocalized: msg.ContentLocalized,
		StepNumber:       msg.StepNumber,
		DisplayOrder:     msg.DisplayOrder,
		IsActive:         msg.IsActive,
		CreatedAt:        msg.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        msg.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTriggerRuleResponse(rule model.BotTriggerRuleItem, stored bool) dto.TriggerRuleResponse {
	resp := dto.TriggerRuleResponse{
		ChatType:               string(rule.ChatType),
		Stored:                 stored,
		IsEnabled:              rule.IsEnabled,
		ReactivationThreshold:  rule.ReactivationThreshold,
		ResetStepsOnReactivate: rule.ResetStepsOnReactivate,
	}
	if !rule.UpdatedAt.IsZero() {
		resp.UpdatedAt = rule.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
