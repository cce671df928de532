package dto

type BotMessageResponse struct {
	ChatType         string `json:"chatType"`
	MessageKey       string `json:"messageKey"`
	Content          string `json:"content"`
	ContentLocalized string `json:"contentLocalized,omitempty"`
	StepNumber       int    `json:"stepNumber"`
	DisplayOrder     int    `json:"displayOrder"`
	IsActive         bool   `json:"isActive"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

type ListBotMessagesResponse struct {
	Messages []BotMessageResponse `json:"messages"`
}

type CreateBotMessageRequest struct {
	ChatType         string `json:"chatType"`
	MessageKey       string `json:"messageKey"`
	Content          string `json:"content"`
	ContentLocalized string `json:"contentLocalized,omitempty"`
	StepNumber       int    `json:"stepNumber"`
	DisplayOrder     int    `json:"displayOrder"`
	IsActive         *bool  `json:"isActive,omitempty"`
}

type UpdateBotMessageRequest struct {
	Content          *string `json:"content,omitempty"`
	ContentLocalized *string `json:"contentLocalized,omitempty"`
	StepNumber       *int    `json:"stepNumber,omitempty"`
	DisplayOrder     *int    `json:"displayOrder,omitempty"`
	IsActive         *bool   `json:"isActive,omitempty"`
}

// TriggerRuleResponse carries Stored false when no rule is saved for the
// chat type. The bot does not answer until one is, and the other fields show
// the defaults a first update starts from.
type TriggerRuleResponse struct {
	ChatType               string `json:"chatType"`
	Stored                 bool   `json:"stored"`
	IsEnabled              bool   `json:"isEnabled"`
	ReactivationThreshold  int    `json:"reactivationThreshold"`
	ResetStepsOnReactivate bool   `json:"resetStepsOnReactivate"`
	UpdatedAt              string `json:"updatedAt,omitempty"`
}

type UpdateTriggerRuleRequest struct {
	IsEnabled              *bool `json:"isEnabled,omitempty"`
	ReactivationThreshold  *int  `json:"reactivationThreshold,omitempty"`
	ResetStepsOnReactivate *bool `json:"resetStepsOnReactivate,omitempty"`
}

type ConversationStateResponse struct {
	ChatType         string  `json:"chatType"`
	ConversationID   string  `json:"conversationId"`
	Phase            string  `json:"phase"`
	Exists           bool    `json:"exists"`
	CurrentStep      int     `json:"currentStep"`
	IsActive         bool    `json:"isActive"`
	UserMessageCount int     `json:"userMessageCount"`
	LastAdminReplyAt *string `json:"lastAdminReplyAt,omitempty"`
	LastBotMessageAt *string `json:"lastBotMessageAt,omitempty"`
}

type StepStatsResponse struct {
	StepNumber   int `json:"stepNumber"`
	Triggers     int `json:"triggers"`
	AdminReplies int `json:"adminReplies"`
}

type BotAnalyticsResponse struct {
	TotalTriggers     int                 `json:"totalTriggers"`
	TotalAdminReplies int                 `json:"totalAdminReplies"`
	AdminReplyRate    float64             `json:"adminReplyRate"`
	Steps             []StepStatsResponse `json:"steps"`
}
