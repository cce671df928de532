package model

import "time"

const DefaultReactivationThreshold = 5

type BotMessageConfigItem struct {
	PK               string    `dynamodbav:"pk" gorm:"column:pk;primaryKey;size:191"`
	ChatType         ChatType  `dynamodbav:"chatType" gorm:"column:chat_type;size:32;index"`
	MessageKey       string    `dynamodbav:"messageKey" gorm:"column:message_key;size:128"`
	Content          string    `dynamodbav:"content" gorm:"column:content;type:text"`
	ContentLocalized string    `dynamodbav:"contentLocalized,omitempty" gorm:"column:content_localized;type:text"`
	StepNumber       int       `dynamodbav:"stepNumber" gorm:"column:step_number"`
	DisplayOrder     int       `dynamodbav:"displayOrder" gorm:"column:display_order"`
	IsActive         bool      `dynamodbav:"isActive" gorm:"column:is_active"`
	CreatedAt        time.Time `dynamodbav:"createdAt" gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt        time.Time `dynamodbav:"updatedAt" gorm:"column:updated_at;autoUpdateTime:false"`
}

func (BotMessageConfigItem) TableName() string { return "bot_message_configs" }

// LocalizedContent is the text a bot message is sent with.
func (m BotMessageConfigItem) LocalizedContent() string {
	if m.ContentLocalized != "" {
		return m.ContentLocalized
	}
	return m.Content
}

type BotTriggerRuleItem struct {
	ChatType               ChatType  `dynamodbav:"chatType" gorm:"column:chat_type;primaryKey;size:32"`
	IsEnabled              bool      `dynamodbav:"isEnabled" gorm:"column:is_enabled"`
	ReactivationThreshold  int       `dynamodbav:"reactivationThreshold" gorm:"column:reactivation_threshold"`
	ResetStepsOnReactivate bool      `dynamodbav:"resetStepsOnReactivate" gorm:"column:reset_steps_on_reactivate"`
	UpdatedAt              time.Time `dynamodbav:"updatedAt" gorm:"column:updated_at;autoUpdateTime:false"`
}

func (BotTriggerRuleItem) TableName() string { return "bot_trigger_rules" }

type BotConversationStateItem struct {
	PK               string     `dynamodbav:"pk" gorm:"column:pk;primaryKey;size:191"`
	ChatType         ChatType   `dynamodbav:"chatType" gorm:"column:chat_type;size:32"`
	ConversationID   string     `dynamodbav:"conversationId" gorm:"column:conversation_id;size:128"`
	CurrentStep      int        `dynamodbav:"currentStep" gorm:"column:current_step"`
	IsActive         bool       `dynamodbav:"isActive" gorm:"column:is_active"`
	LastAdminReplyAt *time.Time `dynamodbav:"lastAdminReplyAt,omitempty" gorm:"column:last_admin_reply_at"`
	UserMessageCount int        `dynamodbav:"userMessageCount" gorm:"column:user_message_count"`
	LastBotMessageAt *time.Time `dynamodbav:"lastBotMessageAt,omitempty" gorm:"column:last_bot_message_at"`
	Version          int64      `dynamodbav:"version" gorm:"column:version"`
	CreatedAt        time.Time  `dynamodbav:"createdAt" gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt        time.Time  `dynamodbav:"updatedAt" gorm:"column:updated_at;autoUpdateTime:false"`
}

func (BotConversationStateItem) TableName() string { return "bot_conversation_states" }

// NewConversationState is the state a conversation starts in before its
// first citizen message is counted.
func NewConversationState(chatType ChatType, conversationID string, now time.Time) BotConversationStateItem {
	return BotConversationStateItem{
		PK:             ConversationStatePK(chatType, conversationID),
		ChatType:       chatType,
		ConversationID: conversationID,
		CurrentStep:    0,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

type BotAnalyticsItem struct {
	PK              string   `dynamodbav:"pk" gorm:"column:pk;primaryKey;size:191"`
	ChatType        ChatType `dynamodbav:"chatType" gorm:"column:chat_type;size:32;index"`
	MessageKey      string   `dynamodbav:"messageKey" gorm:"column:message_key;size:128"`
	StepNumber      int      `dynamodbav:"stepNumber" gorm:"column:step_number"`
	Date            string   `dynamodbav:"date" gorm:"column:date;size:10;index"`
	TriggerCount    int      `dynamodbav:"triggerCount" gorm:"column:trigger_count"`
	AdminReplyCount int      `dynamodbav:"adminReplyCount" gorm:"column:admin_reply_count"`
}

func (BotAnalyticsItem) TableName() string { return "bot_analytics" }
