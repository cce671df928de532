package websocket

import (
	"encoding/json"
	"strings"

	"clean-care-backend/internal/model"
)

type Room struct {
	Id      string
	Clients map[string]*WSClient
}

type WSMessage struct {
	Payload   json.RawMessage `json:"payload"`
	RoomID    string          `json:"roomId"`
	Timestamp int64           `json:"timestamp"`
}

// ChatRoom is the room both parties of one conversation join.
func ChatRoom(chatType model.ChatType, conversationID string) string {
	return "chat:" + string(chatType) + ":" + strings.TrimSpace(conversationID)
}

// AdminRoom receives every message of a chat type, for admin dashboards.
func AdminRoom(chatType model.ChatType) string {
	return "admin:" + string(chatType) + ":notifications"
}
