package dto

type SendMessageRequest struct {
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl,omitempty"`
	VoiceURL string `json:"voiceUrl,omitempty"`
}

type ChatMessageResponse struct {
	ID             string `json:"id"`
	ChatType       string `json:"chatType"`
	ConversationID string `json:"conversationId"`
	SenderType     string `json:"senderType"`
	SenderID       string `json:"senderId,omitempty"`
	Message        string `json:"message"`
	ImageURL       string `json:"imageUrl,omitempty"`
	VoiceURL       string `json:"voiceUrl,omitempty"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"createdAt"`
}

// SendMessageResponse carries the stored message and, for citizen messages,
// the bot reply it triggered.
type SendMessageResponse struct {
	Message    ChatMessageResponse  `json:"message"`
	BotMessage *ChatMessageResponse `json:"botMessage,omitempty"`
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

type ListChatMessagesResponse struct {
	Messages   []ChatMessageResponse `json:"messages"`
	Pagination Pagination            `json:"pagination"`
}

type MarkReadResponse struct {
	Updated int `json:"updated"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// RoomEvent is the websocket payload for a new chat message.
type RoomEvent struct {
	Type          string              `json:"type"`
	Message       ChatMessageResponse `json:"message"`
	BroadcastedAt string              `json:"broadcastedAt"`
}
