package bot

import (
	"clean-care-backend/internal/model"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// maxStateAttempts bounds the read-modify-write retries of one transition.
const maxStateAttempts = 3

// Transition mutates a copy of the current state. Returning false leaves the
// stored state untouched. A transition may run more than once when a
// concurrent writer wins, so it must derive everything from its argument.
type Transition func(state *model.BotConversationStateItem) bool

// Tracker owns the per-conversation bot state. All writes go through Update,
// which retries on version conflicts.
type Tracker struct {
	repo Repository
	now  func() time.Time
}

func NewTracker(repo Repository, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{repo: repo, now: now}
}

// Get returns the stored state without creating one.
func (t *Tracker) Get(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error) {
	return t.repo.GetConversationState(ctx, chatType, conversationID)
}

// GetOrCreate returns the stored state, creating the initial one when absent.
// Two callers racing on the create both end up with the same record.
func (t *Tracker) GetOrCreate(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error) {
	state, err := t.repo.GetConversationState(ctx, chatType, conversationID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.BotConversationStateItem{}, err
	}

	state = model.NewConversationState(chatType, conversationID, t.now().UTC())
	state.Version = 1
	if err := t.repo.CreateConversationState(ctx, state); err != nil {
		if errors.Is(err, ErrConflict) {
			return t.repo.GetConversationState(ctx, chatType, conversationID)
		}
		return model.BotConversationStateItem{}, err
	}
	return state, nil
}

// Update applies transition atomically with respect to other Update calls on
// the same conversation. After maxStateAttempts lost races it gives up with
// an error wrapping ErrConflict.
func (t *Tracker) Update(ctx context.Context, chatType model.ChatType, conversationID string, transition Transition) (model.BotConversationStateItem, error) {
	for attempt := 1; attempt <= maxStateAttempts; attempt++ {
		current, err := t.GetOrCreate(ctx, chatType, conversationID)
		if err != nil {
			return model.BotConversationStateItem{}, err
		}

		next := current
		if !transition(&next) {
			return current, nil
		}
		next.Version = current.Version + 1
		next.UpdatedAt = t.now().UTC()

		err = t.repo.UpdateConversationState(ctx, next, current.Version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrConflict) {
			return model.BotConversationStateItem{}, err
		}

		botStateConflicts.WithLabelValues(string(chatType)).Inc()
		slog.Debug("bot state version conflict",
			"chatType", chatType,
			"conversationId", conversationID,
			"attempt", attempt,
		)
	}
	return model.BotConversationStateItem{}, fmt.Errorf("update state %s: %w",
		model.ConversationStatePK(chatType, conversationID), ErrConflict)
}

// OnCitizenMessage counts one accepted citizen message.
func (t *Tracker) OnCitizenMessage(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error) {
	return t.Update(ctx, chatType, conversationID, func(s *model.BotConversationStateItem) bool {
		countCitizenMessage(s)
		return true
	})
}

// OnAdminReply silences the bot and restarts the reactivation count.
func (t *Tracker) OnAdminReply(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error) {
	now := t.now().UTC()
	return t.Update(ctx, chatType, conversationID, func(s *model.BotConversationStateItem) bool {
		applyAdminReply(s, now)
		return true
	})
}

func countCitizenMessage(s *model.BotConversationStateItem) {
	s.UserMessageCount++
}

func applyAdminReply(s *model.BotConversationStateItem, now time.Time) {
	s.IsActive = false
	s.LastAdminReplyAt = &now
	s.UserMessageCount = 0
}
