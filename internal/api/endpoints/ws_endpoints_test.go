package endpoints

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clean-care-backend/internal/api"
	internaljwt "clean-care-backend/internal/jwt"
	"clean-care-backend/internal/queue"
	"clean-care-backend/internal/websocket"

	gorillaws "github.com/gorilla/websocket"
)

func setupWebsocketServer(t *testing.T) (*httptest.Server, *websocket.Hub) {
	t.Helper()
	internaljwt.SetRoleSecret(internaljwt.RoleCitizen, "citizen-secret")
	internaljwt.SetRoleSecret(internaljwt.RoleAdmin, "admin-secret")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := websocket.NewHub()
	go hub.Run(ctx)
	handler := websocket.NewHandler(ctx, hub, nil)

	queueManager := queue.NewRequestQueueManager(10, 4)
	t.Cleanup(queueManager.Shutdown)
	server := api.NewAPIServer(":0", queueManager, nil, handler)

	ws := NewWebsocketEndpoints(handler)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat/{chatType}/{conversationId}", server.MakeHTTPHandleFunc(ws.ChatWebsocket))
	mux.HandleFunc("/ws/notifications/{chatType}", server.MakeHTTPHandleFunc(ws.AdminNotificationsWebsocket))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestChatWebsocketRejectsBadTokens(t *testing.T) {
	srv, _ := setupWebsocketServer(t)
	citizen := token(t, internaljwt.RoleCitizen, "citizen-1")

	cases := []struct {
		name string
		path string
		want int
	}{
		{"missing role", "/ws/chat/LIVE_CHAT/citizen-1?token=" + citizen, http.StatusBadRequest},
		{"garbage token", "/ws/chat/LIVE_CHAT/citizen-1?role=citizen&token=abc", http.StatusUnauthorized},
		{"wrong role", "/ws/chat/LIVE_CHAT/citizen-1?role=admin&token=" + citizen, http.StatusUnauthorized},
		{"other conversation", "/ws/chat/LIVE_CHAT/citizen-2?role=citizen&token=" + citizen, http.StatusForbidden},
		{"unknown chat type", "/ws/chat/GROUP/citizen-1?role=citizen&token=" + citizen, http.StatusBadRequest},
		{"notifications without token", "/ws/notifications/LIVE_CHAT", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, res, err := gorillaws.DefaultDialer.Dial(wsURL(srv, tc.path), nil)
			if err == nil {
				conn.Close()
				t.Fatal("expected handshake to fail")
			}
			if res == nil || res.StatusCode != tc.want {
				t.Fatalf("expected status %d, got %+v", tc.want, res)
			}
		})
	}
}

func TestChatWebsocketJoinsRoom(t *testing.T) {
	srv, hub := setupWebsocketServer(t)
	citizen := token(t, internaljwt.RoleCitizen, "citizen-1")

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(srv, "/ws/chat/LIVE_CHAT/citizen-1?role=citizen&token="+citizen), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	room := "chat:LIVE_CHAT:citizen-1"
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(room) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered in %s", room)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
