package server

import (
	"encoding/json"
	"net/http"
	"time"

	"market-rotator/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			s.stateMutex.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()
			return

		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			// Send the last rotation of every followed group on connect
			for _, update := range s.latest {
				if client.wants(update.Group) {
					client.send <- update
				}
			}
			s.stateMutex.Unlock()

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case update := <-s.broadcast:
			s.stateMutex.Lock()
			s.latest[update.Group] = update

			for client := range s.clients {
				if !client.wants(update.Group) {
					continue
				}
				select {
				case client.send <- update:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Rotation Sink Implementation
// -----------------------------------------------------------------------------

// BroadcastRotation queues one rotation cycle for delivery to every
// subscribed dashboard client.
func (s *DashboardServer) BroadcastRotation(update models.MRotationUpdate) {
	if update.Type == "" {
		update.Type = "ROTATION"
	}
	if update.Timestamp == 0 {
		update.Timestamp = time.Now().UnixMilli()
	}

	select {
	case s.broadcast <- update:
	case <-s.done:
		// Sink stopped; drop.
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	client.setGroups(cmd.Groups)

	// Replay the current rotation of each newly followed group
	s.stateMutex.RLock()
	replay := make([]models.MRotationUpdate, 0, len(s.latest))
	for _, update := range s.latest {
		if client.wants(update.Group) {
			replay = append(replay, update)
		}
	}
	s.stateMutex.RUnlock()

	for _, update := range replay {
		select {
		case client.send <- update:
		default:
			// Client buffer full; the Hub loop prunes slow consumers.
		}
	}
}
