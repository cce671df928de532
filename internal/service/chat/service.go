package chat

import (
	"clean-care-backend/internal/database"
	"clean-care-backend/internal/events"
	"clean-care-backend/internal/model"
	"clean-care-backend/internal/queue"
	"clean-care-backend/internal/service/bot"
	"clean-care-backend/internal/validation"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation  ErrorCode = "validation_error"
	ErrorCodeForbidden   ErrorCode = "forbidden"
	ErrorCodeUnavailable ErrorCode = "unavailable"
	ErrorCodeInternal    ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	// Reason is set on validation errors raised by message content checks.
	Reason validation.Reason
	Err    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func rejected(chatType model.ChatType, res validation.Result) *Error {
	rejectedMessages.WithLabelValues(string(chatType), string(res.Reason)).Inc()
	return &Error{Code: ErrorCodeValidation, Message: res.Error, Reason: res.Reason}
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100

	recentWindow = 20
)

// MessageParams is one incoming chat message. ConversationID is the
// citizen's user id for live chat and the complaint id for complaint chat.
type MessageParams struct {
	ChatType       model.ChatType
	ConversationID string
	SenderID       string
	Message        string
	ImageURL       string
	VoiceURL       string
	// CorrelationID ties published events to the originating request.
	CorrelationID string
}

type CitizenMessageResult struct {
	Message    model.ChatMessageItem
	BotMessage *model.ChatMessageItem
	Decision   bot.Decision
}

type AdminReplyResult struct {
	Message model.ChatMessageItem
}

type ListMessagesResult struct {
	Messages []model.ChatMessageItem
	Total    int
	Page     int
	Limit    int
	HasMore  bool
}

type Service struct {
	repo      Repository
	orch      *bot.Orchestrator
	lanes     *queue.ConversationLanes
	publisher events.Publisher
	now       func() time.Time
}

func New(db *database.Database, botService *bot.Service, lanes *queue.ConversationLanes, publisher events.Publisher) *Service {
	return NewWithRepository(NewRepository(db), botService, lanes, publisher, time.Now)
}

// NewWithRepository wires the chat store to the bot. lanes may be nil, in
// which case the bot step runs on the caller's goroutine.
func NewWithRepository(repo Repository, botService *bot.Service, lanes *queue.ConversationLanes, publisher events.Publisher, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &Service{
		repo:      repo,
		lanes:     lanes,
		publisher: publisher,
		now:       now,
	}
	s.orch = botService.Orchestrator(s)
	return s
}

// HandleCitizenMessage validates and stores a citizen message, then lets the
// bot respond. Only a rejected or unstored message produces an error; bot
// failures are logged.
func (s *Service) HandleCitizenMessage(ctx context.Context, params MessageParams) (CitizenMessageResult, error) {
	msg, err := s.prepare(params, model.SenderCitizen)
	if err != nil {
		return CitizenMessageResult{}, err
	}

	recent, err := s.repo.RecentBySender(ctx, msg.ChatType, msg.ConversationID, msg.SenderID, recentWindow)
	if err != nil {
		return CitizenMessageResult{}, newError(ErrorCodeUnavailable, "message store unavailable", err)
	}
	if validation.DetectSuspiciousActivity(toRecent(msg, recent), msg.CreatedAt) {
		slog.Warn("suspicious chat activity",
			"chatType", msg.ChatType,
			"conversationId", msg.ConversationID,
			"senderId", msg.SenderID,
		)
		return CitizenMessageResult{}, rejected(msg.ChatType, validation.Result{
			Reason: validation.ReasonSuspicious,
			Error:  "Too many messages, please slow down",
		})
	}

	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return CitizenMessageResult{}, newError(ErrorCodeUnavailable, "message store unavailable", err)
	}
	s.publish(ctx, events.KeyMessageCreated, events.NewMessageCreated(msg), params.CorrelationID)

	result := CitizenMessageResult{Message: msg}
	decided := make(chan bot.Decision, 1)
	err = s.onLane(ctx, msg.ChatType, msg.ConversationID, func() error {
		decision, err := s.orch.HandleCitizenMessage(ctx, msg.ChatType, msg.ConversationID)
		decided <- decision
		return err
	})
	select {
	case result.Decision = <-decided:
	default:
	}
	if err != nil {
		slog.Error("bot step failed",
			"chatType", msg.ChatType,
			"conversationId", msg.ConversationID,
			"error", err,
		)
	}

	d := result.Decision
	if d.Reactivated {
		s.publish(ctx, events.KeyBotReactivated, events.BotReactivated{
			ChatType:         d.ChatType,
			ConversationID:   d.ConversationID,
			UserMessageCount: d.State.UserMessageCount,
		}, params.CorrelationID)
	}
	if d.Message != nil {
		result.BotMessage = d.Message
		s.publish(ctx, events.KeyMessageCreated, events.NewMessageCreated(*d.Message), params.CorrelationID)
		s.publish(ctx, events.KeyBotMessageSent, events.BotMessageSent{
			ChatType:       d.ChatType,
			ConversationID: d.ConversationID,
			MessageID:      d.Message.MessageID,
			MessageKey:     d.Template.MessageKey,
			Step:           d.Step,
		}, params.CorrelationID)
	}
	return result, nil
}

// HandleAdminReply stores an admin message and silences the bot for the
// conversation.
func (s *Service) HandleAdminReply(ctx context.Context, params MessageParams) (AdminReplyResult, error) {
	msg, err := s.prepare(params, model.SenderAdmin)
	if err != nil {
		return AdminReplyResult{}, err
	}

	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return AdminReplyResult{}, newError(ErrorCodeUnavailable, "message store unavailable", err)
	}
	s.publish(ctx, events.KeyMessageCreated, events.NewMessageCreated(msg), params.CorrelationID)

	err = s.onLane(ctx, msg.ChatType, msg.ConversationID, func() error {
		_, err := s.orch.HandleAdminReply(ctx, msg.ChatType, msg.ConversationID)
		return err
	})
	if err != nil {
		slog.Error("bot deactivation failed",
			"chatType", msg.ChatType,
			"conversationId", msg.ConversationID,
			"error", err,
		)
	}
	return AdminReplyResult{Message: msg}, nil
}

// AppendBotMessage stores a bot-authored message. It satisfies
// bot.MessageAppender.
func (s *Service) AppendBotMessage(ctx context.Context, chatType model.ChatType, conversationID, text string) (model.ChatMessageItem, error) {
	msg := s.newMessage(chatType, conversationID, model.SenderBot, "")
	msg.Message = text
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return model.ChatMessageItem{}, err
	}
	return msg, nil
}

func (s *Service) GetConversationState(ctx context.Context, chatType model.ChatType, conversationID string) (bot.ConversationView, error) {
	if err := checkConversation(chatType, conversationID); err != nil {
		return bot.ConversationView{}, err
	}
	view, err := s.orch.ConversationState(ctx, chatType, conversationID)
	if err != nil {
		return bot.ConversationView{}, newError(ErrorCodeUnavailable, "bot state unavailable", err)
	}
	return view, nil
}

// ListMessages pages through a conversation oldest first. page starts at 1;
// limit defaults to DefaultPageSize and is capped at MaxPageSize.
func (s *Service) ListMessages(ctx context.Context, chatType model.ChatType, conversationID string, page, limit int) (ListMessagesResult, error) {
	if err := checkConversation(chatType, conversationID); err != nil {
		return ListMessagesResult{}, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	offset := (page - 1) * limit
	messages, total, err := s.repo.ListMessages(ctx, chatType, conversationID, offset, limit)
	if err != nil {
		return ListMessagesResult{}, newError(ErrorCodeUnavailable, "message store unavailable", err)
	}
	return ListMessagesResult{
		Messages: messages,
		Total:    total,
		Page:     page,
		Limit:    limit,
		HasMore:  offset+len(messages) < total,
	}, nil
}

// MarkAsRead marks the messages reader has received as read and returns how
// many changed.
func (s *Service) MarkAsRead(ctx context.Context, chatType model.ChatType, conversationID string, reader model.SenderType) (int, error) {
	senders, err := counterparts(chatType, conversationID, reader)
	if err != nil {
		return 0, err
	}
	updated, err := s.repo.MarkRead(ctx, chatType, conversationID, senders)
	if err != nil {
		return 0, newError(ErrorCodeUnavailable, "message store unavailable", err)
	}
	return updated, nil
}

func (s *Service) UnreadCount(ctx context.Context, chatType model.ChatType, conversationID string, reader model.SenderType) (int, error) {
	senders, err := counterparts(chatType, conversationID, reader)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnread(ctx, chatType, conversationID, senders)
	if err != nil {
		return 0, newError(ErrorCodeUnavailable, "message store unavailable", err)
	}
	return count, nil
}

// prepare sanitizes and validates params into an unsaved message.
func (s *Service) prepare(params MessageParams, sender model.SenderType) (model.ChatMessageItem, error) {
	if err := checkConversation(params.ChatType, params.ConversationID); err != nil {
		return model.ChatMessageItem{}, err
	}
	senderID := strings.TrimSpace(params.SenderID)
	if senderID == "" {
		return model.ChatMessageItem{}, newError(ErrorCodeValidation, "sender id is required", nil)
	}

	text := validation.SanitizeMessage(params.Message)
	imageURL := strings.TrimSpace(params.ImageURL)
	voiceURL := strings.TrimSpace(params.VoiceURL)

	if text != "" || (imageURL == "" && voiceURL == "") {
		if res := validation.ValidateMessage(text); !res.Valid {
			return model.ChatMessageItem{}, rejected(params.ChatType, res)
		}
	}
	if res := validation.ValidateImageURL(imageURL); !res.Valid {
		return model.ChatMessageItem{}, rejected(params.ChatType, res)
	}
	if res := validation.ValidateVoiceURL(voiceURL); !res.Valid {
		return model.ChatMessageItem{}, rejected(params.ChatType, res)
	}

	msg := s.newMessage(params.ChatType, strings.TrimSpace(params.ConversationID), sender, senderID)
	msg.Message = text
	msg.ImageURL = imageURL
	msg.VoiceURL = voiceURL
	return msg, nil
}

func (s *Service) newMessage(chatType model.ChatType, conversationID string, sender model.SenderType, senderID string) model.ChatMessageItem {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	messageID := id.String()
	return model.ChatMessageItem{
		PK:             model.MessagePK(conversationID, messageID),
		MessageID:      messageID,
		ChatType:       chatType,
		ConversationID: conversationID,
		SenderType:     sender,
		SenderID:       senderID,
		CreatedAt:      s.now().UTC(),
	}
}

func (s *Service) onLane(ctx context.Context, chatType model.ChatType, conversationID string, fn func() error) error {
	if s.lanes == nil {
		return fn()
	}
	return s.lanes.Do(ctx, model.ConversationStatePK(chatType, conversationID), fn)
}

func (s *Service) publish(ctx context.Context, key string, data any, correlationID string) {
	env := events.NewEnvelope(key, data, correlationID, s.now())
	if err := s.publisher.Publish(ctx, key, env); err != nil {
		slog.Warn("event publish failed", "key", key, "error", err)
	}
}

func checkConversation(chatType model.ChatType, conversationID string) error {
	if !chatType.Valid() {
		return newError(ErrorCodeValidation, fmt.Sprintf("invalid chat type %q", chatType), nil)
	}
	if strings.TrimSpace(conversationID) == "" {
		return newError(ErrorCodeValidation, "conversation id is required", nil)
	}
	return nil
}

func counterparts(chatType model.ChatType, conversationID string, reader model.SenderType) ([]model.SenderType, error) {
	if err := checkConversation(chatType, conversationID); err != nil {
		return nil, err
	}
	senders := model.CounterpartSenders(reader)
	if len(senders) == 0 {
		return nil, newError(ErrorCodeForbidden, "reader cannot mark messages", nil)
	}
	return senders, nil
}

// toRecent puts the candidate first, ahead of the stored history, so the
// flood check judges the message being sent rather than only past ones.
func toRecent(candidate model.ChatMessageItem, stored []model.ChatMessageItem) []validation.RecentMessage {
	recent := make([]validation.RecentMessage, 0, len(stored)+1)
	recent = append(recent, validation.RecentMessage{Message: fingerprint(candidate), CreatedAt: candidate.CreatedAt})
	for _, msg := range stored {
		recent = append(recent, validation.RecentMessage{Message: fingerprint(msg), CreatedAt: msg.CreatedAt})
	}
	return recent
}

// fingerprint is the content compared for repeats: text plus attachment
// URLs, so attachment-only messages with different files never match.
func fingerprint(msg model.ChatMessageItem) string {
	return msg.Message + "\x00" + msg.ImageURL + "\x00" + msg.VoiceURL
}
