package model

import "time"

// ChatMessageItem is shared by the live chat and complaint chat tables.
type ChatMessageItem struct {
	PK             string     `dynamodbav:"pk" gorm:"column:pk;primaryKey;size:300"`
	MessageID      string     `dynamodbav:"messageId" gorm:"column:message_id;size:64"`
	ChatType       ChatType   `dynamodbav:"chatType" gorm:"column:chat_type;size:32"`
	ConversationID string     `dynamodbav:"conversationId" gorm:"column:conversation_id;size:128;index"`
	SenderType     SenderType `dynamodbav:"senderType" gorm:"column:sender_type;size:16"`
	SenderID       string     `dynamodbav:"senderId,omitempty" gorm:"column:sender_id;size:128"`
	Message        string     `dynamodbav:"message,omitempty" gorm:"column:message;type:text"`
	ImageURL       string     `dynamodbav:"imageUrl,omitempty" gorm:"column:image_url;type:text"`
	VoiceURL       string     `dynamodbav:"voiceUrl,omitempty" gorm:"column:voice_url;type:text"`
	Read           bool       `dynamodbav:"read" gorm:"column:read"`
	CreatedAt      time.Time  `dynamodbav:"createdAt" gorm:"column:created_at;index;autoCreateTime:false"`
}

// ReadableBy reports whether the opposite party of reader authored the message.
// Citizens read admin and bot messages; admins read citizen messages.
func (m ChatMessageItem) ReadableBy(reader SenderType) bool {
	switch reader {
	case SenderCitizen:
		return m.SenderType == SenderAdmin || m.SenderType == SenderBot
	case SenderAdmin:
		return m.SenderType == SenderCitizen
	}
	return false
}

// CounterpartSenders lists the sender types whose messages reader marks read.
func CounterpartSenders(reader SenderType) []SenderType {
	switch reader {
	case SenderCitizen:
		return []SenderType{SenderAdmin, SenderBot}
	case SenderAdmin:
		return []SenderType{SenderCitizen}
	}
	return nil
}
