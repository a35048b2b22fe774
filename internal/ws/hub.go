package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/metrics"
	"github.com/windoze95/recipe-search-api/internal/models"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Outbound messages buffered per client before it is considered slow.
	sendBufferSize = 64
)

// Message types sent to subscribers.
const (
	MsgTypeSubscribed = "subscribed"
	MsgTypeRecipes    = "recipes"
)

// ErrHubStopped is returned when publishing to a hub that is no longer running.
var ErrHubStopped = errors.New("websocket hub stopped")

// Envelope wraps every message pushed to a subscriber.
type Envelope struct {
	Type    string                 `json:"type"`
	Topic   string                 `json:"topic"`
	Recipes []models.RecipeSummary `json:"recipes"`
}

// Client represents a single WebSocket connection subscribed to one topic.
type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	Send  chan []byte
	Topic string
	ID    string
}

// Hub maintains topic rooms and fans messages out to their members.
type Hub struct {
	Rooms      map[string]map[*Client]bool // topic -> set of clients
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *RoomMessage
	done       chan struct{}
	mu         sync.RWMutex
}

// RoomMessage carries a message destined for a specific topic.
type RoomMessage struct {
	Topic   string
	Message []byte
}

// NewHub creates and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *RoomMessage, 256),
		done:       make(chan struct{}),
	}
}

// NewClient creates a client for topic with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, topic, id string) *Client {
	return &Client{
		Hub:   hub,
		Conn:  conn,
		Send:  make(chan []byte, sendBufferSize),
		Topic: topic,
		ID:    id,
	}
}

// Run handles register, unregister, and broadcast events until ctx is done.
// It should be launched as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	log := logger.Get()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.Topic] == nil {
				h.Rooms[client.Topic] = make(map[*Client]bool)
			}
			h.Rooms[client.Topic][client] = true
			h.mu.Unlock()
			metrics.Subscribers.Inc()

			// Confirm only once the client can receive broadcasts.
			if ack, err := marshalAck(client.Topic); err == nil {
				select {
				case client.Send <- ack:
				default:
				}
			}

			log.Info("subscriber registered",
				zap.String("topic", client.Topic),
				zap.String("client_id", client.ID),
			)

		case client := <-h.Unregister:
			if h.remove(client) {
				log.Info("subscriber unregistered",
					zap.String("topic", client.Topic),
					zap.String("client_id", client.ID),
				)
			}

		case msg := <-h.Broadcast:
			var slow []*Client
			h.mu.RLock()
			for client := range h.Rooms[msg.Topic] {
				select {
				case client.Send <- msg.Message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			// A full send buffer means the client stopped reading; disconnect it.
			for _, client := range slow {
				if h.remove(client) {
					log.Warn("dropping slow subscriber",
						zap.String("topic", client.Topic),
						zap.String("client_id", client.ID),
					)
				}
			}
		}
	}
}

// remove deletes client from its room and closes its send channel. It
// reports whether the client was still registered.
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.Rooms[client.Topic]
	if !ok {
		return false
	}
	if _, exists := clients[client]; !exists {
		return false
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.Rooms, client.Topic)
	}
	metrics.Subscribers.Dec()
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, clients := range h.Rooms {
		for client := range clients {
			close(client.Send)
			metrics.Subscribers.Dec()
		}
		delete(h.Rooms, topic)
	}
}

// Publish sends recipes to every current subscriber of topic. Subscribers
// that join later do not receive it.
func (h *Hub) Publish(ctx context.Context, topic string, recipes []models.RecipeSummary) error {
	data, err := MarshalEnvelope(topic, recipes)
	if err != nil {
		return err
	}
	return h.deliver(ctx, topic, data)
}

// Deliver forwards an already encoded envelope to the subscribers of topic.
func (h *Hub) Deliver(ctx context.Context, topic string, data []byte) error {
	return h.deliver(ctx, topic, data)
}

func (h *Hub) deliver(ctx context.Context, topic string, data []byte) error {
	// Broadcast is buffered, so a stopped hub could still accept the message.
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.Broadcast <- &RoomMessage{Topic: topic, Message: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// Join registers client with the hub. It returns false once the hub stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters client. It is a no-op once the hub stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// SubscriberCount returns the number of clients subscribed to topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Rooms[topic])
}

// MarshalEnvelope encodes a recipes message for topic. A nil slice is sent
// as an empty array.
func MarshalEnvelope(topic string, recipes []models.RecipeSummary) ([]byte, error) {
	if recipes == nil {
		recipes = []models.RecipeSummary{}
	}
	return json.Marshal(Envelope{
		Type:    MsgTypeRecipes,
		Topic:   topic,
		Recipes: recipes,
	})
}

func marshalAck(topic string) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:    MsgTypeSubscribed,
		Topic:   topic,
		Recipes: []models.RecipeSummary{},
	})
}

// ReadPump reads from the WebSocket connection until it closes. Subscribers
// only listen, so inbound messages are discarded. It is intended to be run in
// a per-client goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				logger.Get().Warn("unexpected websocket close",
					zap.String("topic", c.Topic),
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// WritePump sends messages from the Send channel to the WebSocket connection.
// It also sends periodic pings to keep the connection alive. It is intended to
// be run in a per-client goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
