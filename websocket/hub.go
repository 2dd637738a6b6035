package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types pushed over the hub
const (
	NotificationTypeBookingRequest  = "booking_request"
	NotificationTypeBookingResponse = "booking_response"
	NotificationTypeBookingSettled  = "booking_settled"
	NotificationTypeBookingExpired  = "booking_expired"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	Data         interface{} `json:"data,omitempty"`
	UserID       string      `json:"userID,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
}

// Client represents a connected WebSocket client. All outbound traffic
// goes through the send queue; WritePump is the only goroutine that
// touches Conn for writing, since the underlying connection does not
// support concurrent writers.
type Client struct {
	UserID        primitive.ObjectID
	Conn          *websocket.Conn
	Authenticated bool

	send      chan Notification
	sendMu    sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewClient wraps a connection for hub registration.
func NewClient(userID primitive.ObjectID, conn *websocket.Conn) *Client {
	return &Client{
		UserID:        userID,
		Conn:          conn,
		Authenticated: userID != primitive.NilObjectID,
		send:          make(chan Notification, 16),
	}
}

// Queue hands a notification to the client's writer. A full buffer
// means the client is too slow to keep up; the message is dropped
// rather than blocking the caller.
func (c *Client) Queue(notification Notification) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return fmt.Errorf("client disconnected")
	}
	select {
	case c.send <- notification:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// WritePump drains the send queue to the connection.
func (c *Client) WritePump() {
	for notification := range c.send {
		if err := c.Conn.WriteJSON(notification); err != nil {
			return
		}
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// Hub maintains the set of active clients and delivers notifications
type Hub struct {
	clients                map[primitive.ObjectID]*Client
	unauthenticatedClients map[*Client]bool
	register               chan *Client
	unregister             chan *Client
	mu                     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:                make(map[primitive.ObjectID]*Client),
		unauthenticatedClients: make(map[*Client]bool),
		register:               make(chan *Client),
		unregister:             make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				h.clients[client.UserID] = client
			} else {
				h.unauthenticatedClients[client] = true
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				if _, ok := h.clients[client.UserID]; ok {
					delete(h.clients, client.UserID)
				}
			} else {
				delete(h.unauthenticatedClients, client)
			}
			client.shutdown()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}

	return client.Queue(notification)
}

// AuthenticateClient moves a client from unauthenticated to authenticated state
func (h *Hub) AuthenticateClient(client *Client, userID primitive.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.unauthenticatedClients[client]; ok {
		delete(h.unauthenticatedClients, client)
	}

	client.Authenticated = true
	client.UserID = userID
	h.clients[userID] = client

	return nil
}
