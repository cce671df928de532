package bot

import (
	"clean-care-backend/internal/database"
	"clean-care-backend/internal/env"
	"clean-care-backend/internal/model"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeConflict   ErrorCode = "conflict"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
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

const defaultConfigTTL = 30 * time.Second

// Service is the admin-facing side of the bot: catalog and rule management,
// state inspection and analytics. It also hands out orchestrators that share
// its configuration cache.
type Service struct {
	repo      Repository
	config    *CachedConfig
	sync      ConfigSync
	tracker   *Tracker
	analytics *Analytics
	validate  *validator.Validate
	now       func() time.Time
}

type options struct {
	configTTL time.Duration
	sync      ConfigSync
}

type Option func(*options)

// WithConfigTTL sets how long rules and catalogs are cached. Zero reads the
// repository on every message.
func WithConfigTTL(ttl time.Duration) Option {
	return func(o *options) { o.configTTL = ttl }
}

// WithConfigSync announces admin edits to the other processes sharing the
// repository.
func WithConfigSync(sync ConfigSync) Option {
	return func(o *options) { o.sync = sync }
}

func New(db *database.Database, opts ...Option) *Service {
	base := []Option{WithConfigTTL(env.GetDuration(env.BotConfigTTL, defaultConfigTTL))}
	return newService(NewRepository(db), time.Now, append(base, opts...))
}

func NewWithRepository(repo Repository, now func() time.Time, opts ...Option) *Service {
	return newService(repo, now, opts)
}

func newService(repo Repository, now func() time.Time, opts []Option) *Service {
	if now == nil {
		now = time.Now
	}
	o := options{configTTL: defaultConfigTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		repo:      repo,
		config:    NewCachedConfig(NewRepositorySource(repo), o.configTTL, now),
		sync:      o.sync,
		tracker:   NewTracker(repo, now),
		analytics: NewAnalytics(repo, now),
		validate:  validator.New(),
		now:       now,
	}
}

// InvalidateConfig drops this process's cached configuration for chatType.
// ConfigSync listeners call it when another process edits the catalog.
func (s *Service) InvalidateConfig(chatType model.ChatType) {
	s.config.Invalidate(chatType)
}

func (s *Service) configChanged(ctx context.Context, chatType model.ChatType) {
	s.config.Invalidate(chatType)
	if s.sync == nil {
		return
	}
	if err := s.sync.Announce(ctx, chatType); err != nil {
		slog.Warn("bot config change not announced", "chatType", chatType, "error", err)
	}
}

// Orchestrator builds the citizen-message orchestrator on top of this
// service's cache, so admin edits invalidate what it reads.
func (s *Service) Orchestrator(appender MessageAppender) *Orchestrator {
	return NewOrchestrator(s.config, s.tracker, appender, s.analytics, s.now)
}

type CreateMessageParams struct {
	ChatType         model.ChatType `validate:"required,oneof=LIVE_CHAT COMPLAINT_CHAT"`
	MessageKey       string         `validate:"required,max=128,excludesall=#"`
	Content          string         `validate:"required,max=5000"`
	ContentLocalized string         `validate:"max=5000"`
	StepNumber       int            `validate:"min=1"`
	DisplayOrder     int            `validate:"min=0"`
	IsActive         *bool
}

// UpdateMessageParams changes only the fields that are set.
type UpdateMessageParams struct {
	Content          *string `validate:"omitempty,min=1,max=5000"`
	ContentLocalized *string `validate:"omitempty,max=5000"`
	StepNumber       *int    `validate:"omitempty,min=1"`
	DisplayOrder     *int    `validate:"omitempty,min=0"`
	IsActive         *bool
}

type RulePatch struct {
	IsEnabled              *bool
	ReactivationThreshold  *int `validate:"omitempty,min=1"`
	ResetStepsOnReactivate *bool
}

// ListMessages returns every message of chatType, inactive ones included,
// in send order.
func (s *Service) ListMessages(ctx context.Context, chatType model.ChatType) ([]model.BotMessageConfigItem, error) {
	if !chatType.Valid() {
		return nil, newError(ErrorCodeValidation, "invalid chat type", nil)
	}
	messages, err := s.repo.ListBotMessages(ctx, chatType)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list bot messages", err)
	}

	active := OrderActive(messages)
	inactive := make([]model.BotMessageConfigItem, 0, len(messages)-len(active))
	for _, msg := range messages {
		if !msg.IsActive {
			inactive = append(inactive, msg)
		}
	}
	sortBySendOrder(inactive)
	return append(active, inactive...), nil
}

func (s *Service) CreateMessage(ctx context.Context, params CreateMessageParams) (model.BotMessageConfigItem, error) {
	params.MessageKey = strings.TrimSpace(params.MessageKey)
	params.Content = strings.TrimSpace(params.Content)
	params.ContentLocalized = strings.TrimSpace(params.ContentLocalized)
	if err := s.validate.Struct(params); err != nil {
		return model.BotMessageConfigItem{}, newError(ErrorCodeValidation, describeValidation(err), err)
	}

	now := s.now().UTC()
	msg := model.BotMessageConfigItem{
		PK:               model.BotMessagePK(params.ChatType, params.MessageKey),
		ChatType:         params.ChatType,
		MessageKey:       params.MessageKey,
		Content:          params.Content,
		ContentLocalized: params.ContentLocalized,
		StepNumber:       params.StepNumber,
		DisplayOrder:     params.DisplayOrder,
		IsActive:         params.IsActive == nil || *params.IsActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.CreateBotMessage(ctx, msg); err != nil {
		if errors.Is(err, ErrConflict) {
			return model.BotMessageConfigItem{}, newError(ErrorCodeConflict, "bot message key already exists", err)
		}
		return model.BotMessageConfigItem{}, newError(ErrorCodeInternal, "failed to create bot message", err)
	}
	s.configChanged(ctx, msg.ChatType)
	return msg, nil
}

func (s *Service) UpdateMessage(ctx context.Context, chatType model.ChatType, messageKey string, params UpdateMessageParams) (model.BotMessageConfigItem, error) {
	if err := s.validate.Struct(params); err != nil {
		return model.BotMessageConfigItem{}, newError(ErrorCodeValidation, describeValidation(err), err)
	}

	msg, err := s.repo.GetBotMessage(ctx, chatType, messageKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.BotMessageConfigItem{}, newError(ErrorCodeNotFound, "bot message not found", err)
		}
		return model.BotMessageConfigItem{}, newError(ErrorCodeInternal, "failed to load bot message", err)
	}

	if params.Content != nil {
		msg.Content = strings.TrimSpace(*params.Content)
		if msg.Content == "" {
			return model.BotMessageConfigItem{}, newError(ErrorCodeValidation, "content is required", nil)
		}
	}
	if params.ContentLocalized != nil {
		msg.ContentLocalized = strings.TrimSpace(*params.ContentLocalized)
	}
	if params.StepNumber != nil {
		msg.StepNumber = *params.StepNumber
	}
	if params.DisplayOrder != nil {
		msg.DisplayOrder = *params.DisplayOrder
	}
	if params.IsActive != nil {
		msg.IsActive = *params.IsActive
	}
	msg.UpdatedAt = s.now().UTC()

	if err := s.repo.PutBotMessage(ctx, msg); err != nil {
		return model.BotMessageConfigItem{}, newError(ErrorCodeInternal, "failed to update bot message", err)
	}
	s.configChanged(ctx, chatType)
	return msg, nil
}

func (s *Service) DeleteMessage(ctx context.Context, chatType model.ChatType, messageKey string) error {
	if err := s.repo.DeleteBotMessage(ctx, chatType, messageKey); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "bot message not found", err)
		}
		return newError(ErrorCodeInternal, "failed to delete bot message", err)
	}
	s.configChanged(ctx, chatType)
	return nil
}

// GetRule returns the stored rule, or the defaults with stored false when no
// rule is saved. The orchestrator stays silent for an unstored rule.
func (s *Service) GetRule(ctx context.Context, chatType model.ChatType) (model.BotTriggerRuleItem, bool, error) {
	if !chatType.Valid() {
		return model.BotTriggerRuleItem{}, false, newError(ErrorCodeValidation, "invalid chat type", nil)
	}
	rule, err := s.repo.GetTriggerRule(ctx, chatType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DefaultTriggerRule(chatType), false, nil
		}
		return model.BotTriggerRuleItem{}, false, newError(ErrorCodeInternal, "failed to load trigger rule", err)
	}
	return rule, true, nil
}

// UpsertRule applies patch over the current rule, or over the defaults.
func (s *Service) UpsertRule(ctx context.Context, chatType model.ChatType, patch RulePatch) (model.BotTriggerRuleItem, error) {
	if err := s.validate.Struct(patch); err != nil {
		return model.BotTriggerRuleItem{}, newError(ErrorCodeValidation, describeValidation(err), err)
	}
	rule, _, err := s.GetRule(ctx, chatType)
	if err != nil {
		return model.BotTriggerRuleItem{}, err
	}

	if patch.IsEnabled != nil {
		rule.IsEnabled = *patch.IsEnabled
	}
	if patch.ReactivationThreshold != nil {
		rule.ReactivationThreshold = *patch.ReactivationThreshold
	}
	if patch.ResetStepsOnReactivate != nil {
		rule.ResetStepsOnReactivate = *patch.ResetStepsOnReactivate
	}
	rule.UpdatedAt = s.now().UTC()

	if err := s.repo.PutTriggerRule(ctx, rule); err != nil {
		return model.BotTriggerRuleItem{}, newError(ErrorCodeInternal, "failed to save trigger rule", err)
	}
	s.configChanged(ctx, chatType)
	return rule, nil
}

func (s *Service) ConversationState(ctx context.Context, chatType model.ChatType, conversationID string) (ConversationView, error) {
	if !chatType.Valid() {
		return ConversationView{}, newError(ErrorCodeValidation, "invalid chat type", nil)
	}
	if strings.TrimSpace(conversationID) == "" {
		return ConversationView{}, newError(ErrorCodeValidation, "conversation id is required", nil)
	}
	view, err := s.Orchestrator(nil).ConversationState(ctx, chatType, conversationID)
	if err != nil {
		return ConversationView{}, newError(ErrorCodeInternal, "failed to load conversation state", err)
	}
	return view, nil
}

func (s *Service) Analytics(ctx context.Context, q AnalyticsQuery) (AnalyticsReport, error) {
	if q.ChatType != "" && !q.ChatType.Valid() {
		return AnalyticsReport{}, newError(ErrorCodeValidation, "invalid chat type", nil)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return AnalyticsReport{}, newError(ErrorCodeValidation, "end must not be before start", nil)
	}
	report, err := s.analytics.Report(ctx, q)
	if err != nil {
		return AnalyticsReport{}, newError(ErrorCodeInternal, "failed to load bot analytics", err)
	}
	return report, nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid input"
	}
	fe := fieldErrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "excludesall":
		return fmt.Sprintf("%s must not contain %q", field, fe.Param())
	}
	return field + " is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
