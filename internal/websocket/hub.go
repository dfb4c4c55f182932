// Package websocket fans out one-way JSON messages to topic subscribers:
// task progress pushes and the transport's surface commands. Publishing to a
// topic nobody listens on is a no-op, which is exactly the contract the
// projector surface needs.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Client represents one subscriber connection.
type Client struct {
	Topic string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub maintains active subscriber connections grouped by topic.
type Hub struct {
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *topicMessage

	mu sync.RWMutex
}

type topicMessage struct {
	Topic   string
	Message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.Topic] == nil {
				h.clients[client.Topic] = make(map[*Client]bool)
			}
			h.clients[client.Topic][client] = true
			h.mu.Unlock()
			log.Printf("Client subscribed to %s", client.Topic)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.Topic]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.Topic)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Client left %s", client.Topic)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.Topic]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.Message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish sends a JSON-encoded payload to every subscriber of the topic.
// Fire-and-forget: no subscribers, no effect.
func (h *Hub) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal message for %s: %v", topic, err)
		return
	}
	h.broadcast <- &topicMessage{Topic: topic, Message: data}
}

// TaskTopic names the progress push topic for a task id.
func TaskTopic(taskID string) string {
	return "task:" + taskID
}

// PublishTaskProgress pushes a task progress update to pollers that chose
// the push channel instead. Ordering follows the store's monotonic clamp
// because workers publish after the store accepts the update.
func (h *Hub) PublishTaskProgress(taskID, status string, progress float64, message string) {
	h.Publish(TaskTopic(taskID), map[string]interface{}{
		"type":     "progress",
		"taskId":   taskID,
		"status":   status,
		"progress": progress,
		"message":  message,
	})
}

// HandleConnection pumps a subscriber connection until it drops.
func (h *Hub) HandleConnection(c *websocket.Conn, topic string) {
	client := &Client{
		Topic: topic,
		Conn:  c,
		Send:  make(chan []byte, 256),
	}

	h.register <- client
	defer func() { h.unregister <- client }()

	// Writer
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop; surface messages are one-way, so inbound traffic is
	// only keep-alive.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on %s: %v", topic, err)
			}
			break
		}
	}
}
