// Package events publishes chat and bot domain events to a RabbitMQ topic
// exchange for downstream consumers (notifications, reporting).
package events

import (
	"clean-care-backend/internal/model"
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	KeyMessageCreated = "chat.message.created"
	KeyBotMessageSent = "bot.message.sent"
	KeyBotReactivated = "bot.reactivated"

	producer = "clean-care-backend"
)

type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Producer      string    `json:"producer"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID *string   `json:"correlationId,omitempty"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewEnvelope wraps data for routing key eventType. An empty correlationID
// is left unset.
func NewEnvelope(eventType string, data any, correlationID string, now time.Time) Envelope {
	env := Envelope{
		Meta: Meta{
			ID:         uuid.NewString(),
			Type:       eventType,
			Producer:   producer,
			OccurredAt: now.UTC(),
		},
		Data: data,
	}
	if correlationID != "" {
		env.Meta.CorrelationID = &correlationID
	}
	return env
}

type MessageCreated struct {
	ChatType       model.ChatType   `json:"chatType"`
	ConversationID string           `json:"conversationId"`
	MessageID      string           `json:"messageId"`
	SenderType     model.SenderType `json:"senderType"`
	SenderID       string           `json:"senderId,omitempty"`
	HasImage       bool             `json:"hasImage"`
	HasVoice       bool             `json:"hasVoice"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type BotMessageSent struct {
	ChatType       model.ChatType `json:"chatType"`
	ConversationID string         `json:"conversationId"`
	MessageID      string         `json:"messageId"`
	MessageKey     string         `json:"messageKey"`
	Step           int            `json:"step"`
}

type BotReactivated struct {
	ChatType         model.ChatType `json:"chatType"`
	ConversationID   string         `json:"conversationId"`
	UserMessageCount int            `json:"userMessageCount"`
}

func NewMessageCreated(msg model.ChatMessageItem) MessageCreated {
	return MessageCreated{
		ChatType:       msg.ChatType,
		ConversationID: msg.ConversationID,
		MessageID:      msg.MessageID,
		SenderType:     msg.SenderType,
		SenderID:       msg.SenderID,
		HasImage:       msg.ImageURL != "",
		HasVoice:       msg.VoiceURL != "",
		CreatedAt:      msg.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, Envelope) error { return nil }

func (Nop) Close() error { return nil }
