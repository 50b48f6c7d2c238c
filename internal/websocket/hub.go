package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/relaydesk/relaydesk-backend/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe        MessageType = "subscribe"
	MessageTypeUnsubscribe      MessageType = "unsubscribe"
	MessageTypeNewMessage       MessageType = "new_message"
	MessageTypeSubmissionUpdate MessageType = "submission_update"
	MessageTypeError            MessageType = "error"
)

// WSMessage represents a WebSocket message. Subscriptions name either a
// conversation (message feed) or an attachment (submission feed).
type WSMessage struct {
	Type           MessageType `json:"type"`
	ConversationID uint        `json:"conversation_id,omitempty"`
	AttachmentID   uint        `json:"attachment_id,omitempty"`
	Message        interface{} `json:"message,omitempty"`
	Submission     interface{} `json:"submission,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// NewMessagePayload represents the payload for new message notifications
type NewMessagePayload struct {
	ID          uint   `json:"id"`
	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	ReceivedAt  string `json:"received_at"`
}

// topicKind distinguishes the two subscription feeds
type topicKind string

const (
	topicConversation topicKind = "conversation"
	topicAttachment   topicKind = "attachment"
)

// topic is a subscription key
type topic struct {
	kind topicKind
	id   uint
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Topic subscriptions: topic -> set of clients
	subscriptions map[topic]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscribe to a topic
	subscribe chan *subscriptionRequest

	// Unsubscribe from a topic
	unsubscribeTopic chan *subscriptionRequest

	// Broadcast to topic subscribers
	broadcast chan *broadcastMessage

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger
}

type subscriptionRequest struct {
	client *Client
	topic  topic
}

type broadcastMessage struct {
	topic   topic
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:          make(map[*Client]bool),
		subscriptions:    make(map[topic]map[*Client]bool),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		subscribe:        make(chan *subscriptionRequest),
		unsubscribeTopic: make(chan *subscriptionRequest),
		broadcast:        make(chan *broadcastMessage, 256),
		logger:           logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				// Remove from all subscriptions
				for t, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, t)
					}
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered")
			}

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.subscriptions[req.topic] == nil {
				h.subscriptions[req.topic] = make(map[*Client]bool)
			}
			h.subscriptions[req.topic][req.client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client subscribed",
					slog.String("kind", string(req.topic.kind)),
					slog.Uint64("id", uint64(req.topic.id)))
			}

		case req := <-h.unsubscribeTopic:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.topic]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.topic)
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unsubscribed",
					slog.String("kind", string(req.topic.kind)),
					slog.Uint64("id", uint64(req.topic.id)))
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			subscribers := h.subscriptions[msg.topic]
			for client := range subscribers {
				select {
				case client.send <- msg.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SubscribeConversation subscribes a client to a conversation's message feed
func (h *Hub) SubscribeConversation(client *Client, conversationID uint) {
	h.subscribe <- &subscriptionRequest{client: client, topic: topic{topicConversation, conversationID}}
}

// SubscribeAttachment subscribes a client to an attachment's submission feed
func (h *Hub) SubscribeAttachment(client *Client, attachmentID uint) {
	h.subscribe <- &subscriptionRequest{client: client, topic: topic{topicAttachment, attachmentID}}
}

// UnsubscribeConversation removes a conversation subscription
func (h *Hub) UnsubscribeConversation(client *Client, conversationID uint) {
	h.unsubscribeTopic <- &subscriptionRequest{client: client, topic: topic{topicConversation, conversationID}}
}

// UnsubscribeAttachment removes an attachment subscription
func (h *Hub) UnsubscribeAttachment(client *Client, attachmentID uint) {
	h.unsubscribeTopic <- &subscriptionRequest{client: client, topic: topic{topicAttachment, attachmentID}}
}

// BroadcastNewMessage broadcasts a new message notification to conversation subscribers
func (h *Hub) BroadcastNewMessage(conversationID uint, payload *NewMessagePayload) {
	h.send(topic{topicConversation, conversationID}, WSMessage{
		Type:           MessageTypeNewMessage,
		ConversationID: conversationID,
		Message:        payload,
	})
}

// NotifySubmissionUpdate broadcasts a submission change to attachment
// subscribers. The serialized submission carries its revision, so clients
// can drop pushes that arrive out of order.
func (h *Hub) NotifySubmissionUpdate(attachmentID uint, submission *models.Submission) {
	h.send(topic{topicAttachment, attachmentID}, WSMessage{
		Type:         MessageTypeSubmissionUpdate,
		AttachmentID: attachmentID,
		Submission:   submission,
	})
}

func (h *Hub) send(t topic, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	h.broadcast <- &broadcastMessage{topic: t, message: data}
}
