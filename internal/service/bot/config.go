package bot

import (
	"clean-care-backend/internal/model"
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// DefaultTriggerRule is used for chat types with no stored rule.
func DefaultTriggerRule(chatType model.ChatType) model.BotTriggerRuleItem {
	return model.BotTriggerRuleItem{
		ChatType:               chatType,
		IsEnabled:              true,
		ReactivationThreshold:  model.DefaultReactivationThreshold,
		ResetStepsOnReactivate: false,
	}
}

// ConfigSource supplies the trigger rule and the active catalog of a chat
// type. A missing rule is reported as ErrNotFound.
type ConfigSource interface {
	TriggerRule(ctx context.Context, chatType model.ChatType) (model.BotTriggerRuleItem, error)
	ActiveMessages(ctx context.Context, chatType model.ChatType) ([]model.BotMessageConfigItem, error)
}

type repositorySource struct {
	repo Repository
}

// NewRepositorySource reads configuration straight from repo on every call.
func NewRepositorySource(repo Repository) ConfigSource {
	return repositorySource{repo: repo}
}

func (s repositorySource) TriggerRule(ctx context.Context, chatType model.ChatType) (model.BotTriggerRuleItem, error) {
	return s.repo.GetTriggerRule(ctx, chatType)
}

func (s repositorySource) ActiveMessages(ctx context.Context, chatType model.ChatType) ([]model.BotMessageConfigItem, error) {
	all, err := s.repo.ListBotMessages(ctx, chatType)
	if err != nil {
		return nil, err
	}
	return OrderActive(all), nil
}

// OrderActive keeps active messages sorted by step, then display order, then
// message key. The first entry of a step is the one that step sends.
func OrderActive(messages []model.BotMessageConfigItem) []model.BotMessageConfigItem {
	active := make([]model.BotMessageConfigItem, 0, len(messages))
	for _, msg := range messages {
		if msg.IsActive {
			active = append(active, msg)
		}
	}
	sortBySendOrder(active)
	return active
}

func sortBySendOrder(messages []model.BotMessageConfigItem) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if a.StepNumber != b.StepNumber {
			return a.StepNumber < b.StepNumber
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.MessageKey < b.MessageKey
	})
}

// MessageForStep picks the message for step out of an ordered active catalog.
func MessageForStep(ordered []model.BotMessageConfigItem, step int) (model.BotMessageConfigItem, bool) {
	for _, msg := range ordered {
		if msg.StepNumber == step {
			return msg, true
		}
		if msg.StepNumber > step {
			break
		}
	}
	return model.BotMessageConfigItem{}, false
}

type ruleEntry struct {
	rule    model.BotTriggerRuleItem
	missing bool
	expires time.Time
}

type catalogEntry struct {
	messages []model.BotMessageConfigItem
	expires  time.Time
}

// CachedConfig memoizes a ConfigSource per chat type for ttl. Errors other
// than ErrNotFound are never cached. Admin writes call Invalidate so edits
// apply on the next message.
type CachedConfig struct {
	src ConfigSource
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	rules    map[model.ChatType]ruleEntry
	catalogs map[model.ChatType]catalogEntry
}

func NewCachedConfig(src ConfigSource, ttl time.Duration, now func() time.Time) *CachedConfig {
	if now == nil {
		now = time.Now
	}
	return &CachedConfig{
		src:      src,
		ttl:      ttl,
		now:      now,
		rules:    make(map[model.ChatType]ruleEntry),
		catalogs: make(map[model.ChatType]catalogEntry),
	}
}

func (c *CachedConfig) TriggerRule(ctx context.Context, chatType model.ChatType) (model.BotTriggerRuleItem, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.rules[chatType]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		if entry.missing {
			return model.BotTriggerRuleItem{}, ErrNotFound
		}
		return entry.rule, nil
	}

	rule, err := c.src.TriggerRule(ctx, chatType)
	missing := errors.Is(err, ErrNotFound)
	if err != nil && !missing {
		return model.BotTriggerRuleItem{}, err
	}

	c.mu.Lock()
	c.rules[chatType] = ruleEntry{rule: rule, missing: missing, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	if missing {
		return model.BotTriggerRuleItem{}, ErrNotFound
	}
	return rule, nil
}

func (c *CachedConfig) ActiveMessages(ctx context.Context, chatType model.ChatType) ([]model.BotMessageConfigItem, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.catalogs[chatType]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.messages, nil
	}

	messages, err := c.src.ActiveMessages(ctx, chatType)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.catalogs[chatType] = catalogEntry{messages: messages, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return messages, nil
}

// Invalidate drops cached configuration for chatType.
func (c *CachedConfig) Invalidate(chatType model.ChatType) {
	c.mu.Lock()
	delete(c.rules, chatType)
	delete(c.catalogs, chatType)
	c.mu.Unlock()
}
