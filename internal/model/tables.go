package model

import (
	"fmt"
	"strings"
)

const (
	BotMessagesTable           = "BotMessageConfigs"
	BotTriggerRulesTable       = "BotTriggerRules"
	BotConversationStatesTable = "BotConversationStates"
	BotAnalyticsTable          = "BotAnalytics"
	LiveChatMessagesTable      = "LiveChatMessages"
	ComplaintChatMessagesTable = "ComplaintChatMessages"
)

type ChatType string

const (
	ChatTypeLive      ChatType = "LIVE_CHAT"
	ChatTypeComplaint ChatType = "COMPLAINT_CHAT"
)

func ChatTypes() []ChatType {
	return []ChatType{ChatTypeLive, ChatTypeComplaint}
}

func (c ChatType) Valid() bool {
	return c == ChatTypeLive || c == ChatTypeComplaint
}

// ParseChatType accepts the enum value as well as the url friendly
// "live-chat" / "complaint-chat" forms.
func ParseChatType(raw string) (ChatType, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
	ct := ChatType(normalized)
	if !ct.Valid() {
		return "", false
	}
	return ct, true
}

type SenderType string

const (
	SenderAdmin   SenderType = "ADMIN"
	SenderCitizen SenderType = "CITIZEN"
	SenderBot     SenderType = "BOT"
)

func (s SenderType) Valid() bool {
	return s == SenderAdmin || s == SenderCitizen || s == SenderBot
}

// MessagesTable returns the physical table holding messages of a chat type.
func MessagesTable(chatType ChatType) string {
	if chatType == ChatTypeComplaint {
		return ComplaintChatMessagesTable
	}
	return LiveChatMessagesTable
}

func BotMessagePK(chatType ChatType, messageKey string) string {
	return fmt.Sprintf("%s#%s", chatType, messageKey)
}

func ConversationStatePK(chatType ChatType, conversationID string) string {
	return fmt.Sprintf("%s#%s", chatType, conversationID)
}

func BotAnalyticsPK(chatType ChatType, messageKey, date string) string {
	return fmt.Sprintf("%s#%s#%s", chatType, messageKey, date)
}

func MessagePK(conversationID, messageID string) string {
	return fmt.Sprintf("%s#%s", conversationID, messageID)
}
