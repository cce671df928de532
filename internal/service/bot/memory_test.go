package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"clean-care-backend/internal/model"
)

type memoryRepository struct {
	mu        sync.Mutex
	rules     map[model.ChatType]model.BotTriggerRuleItem
	messages  map[string]model.BotMessageConfigItem
	states    map[string]model.BotConversationStateItem
	analytics map[string]model.BotAnalyticsItem

	// conflicts makes the next n state updates fail with ErrConflict.
	conflicts   int
	listCalls   int
	listErr     error
	stateWrites int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		rules:     make(map[model.ChatType]model.BotTriggerRuleItem),
		messages:  make(map[string]model.BotMessageConfigItem),
		states:    make(map[string]model.BotConversationStateItem),
		analytics: make(map[string]model.BotAnalyticsItem),
	}
}

func (m *memoryRepository) GetTriggerRule(ctx context.Context, chatType model.ChatType) (model.BotTriggerRuleItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[chatType]
	if !ok {
		return model.BotTriggerRuleItem{}, ErrNotFound
	}
	return rule, nil
}

func (m *memoryRepository) PutTriggerRule(ctx context.Context, rule model.BotTriggerRuleItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ChatType] = rule
	return nil
}

func (m *memoryRepository) ListBotMessages(ctx context.Context, chatType model.ChatType) ([]model.BotMessageConfigItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.BotMessageConfigItem
	for _, msg := range m.messages {
		if msg.ChatType == chatType {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memoryRepository) GetBotMessage(ctx context.Context, chatType model.ChatType, messageKey string) (model.BotMessageConfigItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[model.BotMessagePK(chatType, messageKey)]
	if !ok {
		return model.BotMessageConfigItem{}, ErrNotFound
	}
	return msg, nil
}

func (m *memoryRepository) CreateBotMessage(ctx context.Context, msg model.BotMessageConfigItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[msg.PK]; ok {
		return ErrConflict
	}
	m.messages[msg.PK] = msg
	return nil
}

func (m *memoryRepository) PutBotMessage(ctx context.Context, msg model.BotMessageConfigItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.PK] = msg
	return nil
}

func (m *memoryRepository) DeleteBotMessage(ctx context.Context, chatType model.ChatType, messageKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := model.BotMessagePK(chatType, messageKey)
	if _, ok := m.messages[pk]; !ok {
		return ErrNotFound
	}
	delete(m.messages, pk)
	return nil
}

func (m *memoryRepository) GetConversationState(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[model.ConversationStatePK(chatType, conversationID)]
	if !ok {
		return model.BotConversationStateItem{}, ErrNotFound
	}
	return state, nil
}

func (m *memoryRepository) CreateConversationState(ctx context.Context, state model.BotConversationStateItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[state.PK]; ok {
		return ErrConflict
	}
	m.states[state.PK] = state
	return nil
}

func (m *memoryRepository) UpdateConversationState(ctx context.Context, state model.BotConversationStateItem, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return ErrConflict
	}
	current, ok := m.states[state.PK]
	if !ok || current.Version != expectedVersion {
		return ErrConflict
	}
	m.states[state.PK] = state
	m.stateWrites++
	return nil
}

func (m *memoryRepository) IncrementAnalytics(ctx context.Context, row model.BotAnalyticsItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.analytics[row.PK]
	if ok {
		row.TriggerCount += existing.TriggerCount
		row.AdminReplyCount += existing.AdminReplyCount
	}
	m.analytics[row.PK] = row
	return nil
}

func (m *memoryRepository) ListAnalytics(ctx context.Context, filter AnalyticsFilter) ([]model.BotAnalyticsItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BotAnalyticsItem
	for _, row := range m.analytics {
		if filter.ChatType != "" && row.ChatType != filter.ChatType {
			continue
		}
		if filter.StartDate != "" && row.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && row.Date > filter.EndDate {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *memoryRepository) state(chatType model.ChatType, conversationID string) (model.BotConversationStateItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[model.ConversationStatePK(chatType, conversationID)]
	return state, ok
}

func (m *memoryRepository) addMessage(chatType model.ChatType, key string, step, order int, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[model.BotMessagePK(chatType, key)] = model.BotMessageConfigItem{
		PK:           model.BotMessagePK(chatType, key),
		ChatType:     chatType,
		MessageKey:   key,
		Content:      content,
		StepNumber:   step,
		DisplayOrder: order,
		IsActive:     true,
	}
}

type recordingAppender struct {
	mu    sync.Mutex
	texts []string
	err   error
	now   func() time.Time
}

func (a *recordingAppender) AppendBotMessage(ctx context.Context, chatType model.ChatType, conversationID, text string) (model.ChatMessageItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return model.ChatMessageItem{}, a.err
	}
	a.texts = append(a.texts, text)
	return model.ChatMessageItem{
		ChatType:       chatType,
		ConversationID: conversationID,
		SenderType:     model.SenderBot,
		Message:        text,
		CreatedAt:      a.now(),
	}, nil
}

var errStoreDown = errors.New("store down")
