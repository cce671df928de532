package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	readLimit    = 4 * 1024
)

// WSClient is one websocket connection. ID is unique per connection so a user
// may hold several tabs in the same room.
type WSClient struct {
	Conn     *websocket.Conn
	Message  chan *WSMessage
	ID       string
	UserID   string
	RoomID   string
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
}

func (cl *WSClient) write(messageType int, fn func() error) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.isClosed {
		return websocket.ErrCloseSent
	}
	cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if fn != nil {
		return fn()
	}
	return cl.Conn.WriteMessage(messageType, nil)
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			if err := cl.write(websocket.PingMessage, nil); err != nil {
				log.Printf("Ping error for client %s: %v", cl.ID, err)
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.Message:
			if !ok {
				return
			}
			err := cl.write(websocket.TextMessage, func() error {
				return cl.Conn.WriteJSON(msg)
			})
			if err != nil {
				log.Printf("Error sending message to client %s: %v", cl.ID, err)
				return
			}
		}
	}
}

// readMessage only watches the connection. Chat messages are posted over
// HTTP so they go through validation; inbound frames are discarded.
func (cl *WSClient) readMessage(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in readMessage: %v", r)
		}
		close(cl.done)
		hub.Unregister <- cl
		log.Printf("Client %s (user %s) left room %s", cl.ID, cl.UserID, cl.RoomID)
	}()

	cl.Conn.SetReadLimit(readLimit)
	cl.Conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	cl.Conn.SetPongHandler(func(string) error {
		return cl.Conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	})

	for {
		if _, _, err := cl.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				log.Printf("Error reading from client %s: %v", cl.ID, err)
			}
			return
		}
	}
}
