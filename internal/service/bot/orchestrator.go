package bot

import (
	"clean-care-backend/internal/model"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Phase is the lifecycle position of a conversation's bot.
type Phase string

const (
	// PhaseDormant: an admin replied and the citizen has not yet sent
	// enough messages to wake the bot.
	PhaseDormant Phase = "DORMANT"
	// PhaseAdvancing: the next citizen message sends the next step.
	PhaseAdvancing Phase = "ADVANCING"
	// PhaseExhausted: active but the catalog has no further step.
	PhaseExhausted Phase = "EXHAUSTED"
)

// PhaseOf derives the phase from state and whether the step after the
// current one exists in the catalog.
func PhaseOf(state model.BotConversationStateItem, hasNextStep bool) Phase {
	switch {
	case !state.IsActive:
		return PhaseDormant
	case hasNextStep:
		return PhaseAdvancing
	default:
		return PhaseExhausted
	}
}

type Outcome string

const (
	OutcomeDisabled  Outcome = "disabled"
	OutcomeDormant   Outcome = "dormant"
	OutcomeSent      Outcome = "sent"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeConflict  Outcome = "conflict"
	OutcomeError     Outcome = "error"
)

// Decision records what the orchestrator did for one citizen message.
type Decision struct {
	ChatType       model.ChatType
	ConversationID string
	Outcome        Outcome
	// Phase is the phase after the transition. Empty when the state was not
	// touched.
	Phase       Phase
	Step        int
	Reactivated bool
	Template    *model.BotMessageConfigItem
	Message     *model.ChatMessageItem
	State       model.BotConversationStateItem
}

// MessageAppender stores a bot-authored message in the conversation.
type MessageAppender interface {
	AppendBotMessage(ctx context.Context, chatType model.ChatType, conversationID, text string) (model.ChatMessageItem, error)
}

// Orchestrator decides whether a citizen message is answered by the bot and
// keeps the conversation state consistent with that decision. Callers must
// serialize calls for the same conversation; version checks in the tracker
// cover writers that do not.
type Orchestrator struct {
	config    ConfigSource
	tracker   *Tracker
	appender  MessageAppender
	analytics *Analytics
	now       func() time.Time
}

func NewOrchestrator(config ConfigSource, tracker *Tracker, appender MessageAppender, analytics *Analytics, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		config:    config,
		tracker:   tracker,
		appender:  appender,
		analytics: analytics,
		now:       now,
	}
}

// HandleCitizenMessage runs after a citizen message has been stored. A
// disabled or missing rule leaves the state untouched. A returned error means
// the state was written but the bot message could not be stored, or the
// state store itself failed; the citizen message is unaffected either way.
func (o *Orchestrator) HandleCitizenMessage(ctx context.Context, chatType model.ChatType, conversationID string) (Decision, error) {
	decision := Decision{ChatType: chatType, ConversationID: conversationID}

	rule, err := o.config.TriggerRule(ctx, chatType)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("bot trigger rule unavailable", "chatType", chatType, "error", err)
		}
		decision.Outcome = OutcomeDisabled
		observeDecision(decision)
		return decision, nil
	}
	if !rule.IsEnabled {
		decision.Outcome = OutcomeDisabled
		observeDecision(decision)
		return decision, nil
	}

	catalog, err := o.config.ActiveMessages(ctx, chatType)
	if err != nil {
		slog.Warn("bot catalog unavailable", "chatType", chatType, "error", err)
		catalog = nil
	}

	state, err := o.tracker.Update(ctx, chatType, conversationID, func(s *model.BotConversationStateItem) bool {
		decision.Outcome, decision.Reactivated, decision.Template, decision.Step = "", false, nil, 0

		countCitizenMessage(s)
		if !s.IsActive {
			if s.UserMessageCount < rule.ReactivationThreshold {
				decision.Outcome = OutcomeDormant
				return true
			}
			s.IsActive = true
			if rule.ResetStepsOnReactivate {
				s.CurrentStep = 0
			}
			decision.Reactivated = true
		}

		next, ok := MessageForStep(catalog, s.CurrentStep+1)
		if !ok {
			decision.Outcome = OutcomeExhausted
			return true
		}

		now := o.now().UTC()
		s.CurrentStep = next.StepNumber
		s.LastBotMessageAt = &now
		decision.Outcome = OutcomeSent
		decision.Template = &next
		decision.Step = next.StepNumber
		return true
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			slog.Warn("bot step skipped after repeated state conflicts",
				"chatType", chatType,
				"conversationId", conversationID,
			)
			conflict := Decision{ChatType: chatType, ConversationID: conversationID, Outcome: OutcomeConflict}
			observeDecision(conflict)
			return conflict, nil
		}
		failed := Decision{ChatType: chatType, ConversationID: conversationID, Outcome: OutcomeError}
		observeDecision(failed)
		return failed, fmt.Errorf("update bot state: %w", err)
	}

	decision.State = state
	_, hasNext := MessageForStep(catalog, state.CurrentStep+1)
	decision.Phase = PhaseOf(state, hasNext)

	if decision.Reactivated {
		slog.Info("bot reactivated",
			"chatType", chatType,
			"conversationId", conversationID,
			"userMessageCount", state.UserMessageCount,
		)
	}

	if decision.Outcome != OutcomeSent {
		observeDecision(decision)
		return decision, nil
	}

	msg, err := o.appender.AppendBotMessage(ctx, chatType, conversationID, decision.Template.LocalizedContent())
	if err != nil {
		decision.Outcome = OutcomeError
		observeDecision(decision)
		return decision, fmt.Errorf("append bot message step %d: %w", decision.Step, err)
	}
	decision.Message = &msg
	o.analytics.TrackTrigger(ctx, *decision.Template)
	observeDecision(decision)

	slog.Debug("bot message sent",
		"chatType", chatType,
		"conversationId", conversationID,
		"step", decision.Step,
		"messageKey", decision.Template.MessageKey,
	)
	return decision, nil
}

// HandleAdminReply deactivates the bot for the conversation regardless of the
// rule, creating the state if the conversation has none yet.
func (o *Orchestrator) HandleAdminReply(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error) {
	now := o.now().UTC()
	var previousStep int
	var wasActive bool

	state, err := o.tracker.Update(ctx, chatType, conversationID, func(s *model.BotConversationStateItem) bool {
		previousStep, wasActive = s.CurrentStep, s.IsActive
		applyAdminReply(s, now)
		return true
	})
	if err != nil {
		return model.BotConversationStateItem{}, fmt.Errorf("deactivate bot: %w", err)
	}

	if wasActive && previousStep > 0 {
		catalog, err := o.config.ActiveMessages(ctx, chatType)
		if err == nil {
			if answered, ok := MessageForStep(catalog, previousStep); ok {
				o.analytics.TrackAdminReply(ctx, answered)
			}
		}
	}
	return state, nil
}

// ConversationView is a read-only snapshot for admin tooling. Exists is false
// when the conversation has no stored state yet; State then holds the state
// it would start with.
type ConversationView struct {
	State  model.BotConversationStateItem
	Phase  Phase
	Exists bool
}

func (o *Orchestrator) ConversationState(ctx context.Context, chatType model.ChatType, conversationID string) (ConversationView, error) {
	view := ConversationView{Exists: true}
	state, err := o.tracker.Get(ctx, chatType, conversationID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return ConversationView{}, err
		}
		state = model.NewConversationState(chatType, conversationID, o.now().UTC())
		view.Exists = false
	}
	view.State = state

	catalog, err := o.config.ActiveMessages(ctx, chatType)
	if err != nil {
		return ConversationView{}, err
	}
	_, hasNext := MessageForStep(catalog, state.CurrentStep+1)
	view.Phase = PhaseOf(state, hasNext)
	return view, nil
}
