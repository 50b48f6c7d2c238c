package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relaydesk/relaydesk-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registeredClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := NewClient(hub, nil, nil)
	hub.Register(client)
	time.Sleep(10 * time.Millisecond) // Allow registration to process
	return client
}

// ==================== Subscription Tests ====================

func TestHub_SubscribeAttachment(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	client := registeredClient(t, hub)

	hub.SubscribeAttachment(client, 42)
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, exists := hub.subscriptions[topic{topicAttachment, 42}]
	hub.mu.RUnlock()
	assert.True(t, exists)
}

// Conversation and attachment feeds with the same numeric id are
// distinct topics
func TestHub_TopicsDoNotCollideAcrossKinds(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	client := registeredClient(t, hub)

	hub.SubscribeConversation(client, 7)
	time.Sleep(10 * time.Millisecond)

	hub.NotifySubmissionUpdate(7, &models.Submission{ID: 1, AttachmentID: 7})
	time.Sleep(10 * time.Millisecond)

	select {
	case <-client.send:
		t.Fatal("conversation subscriber received an attachment push")
	default:
	}
}

func TestHub_UnregisterCleansSubscriptions(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	client := registeredClient(t, hub)
	hub.SubscribeAttachment(client, 42)
	time.Sleep(10 * time.Millisecond)

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, exists := hub.subscriptions[topic{topicAttachment, 42}]
	hub.mu.RUnlock()
	assert.False(t, exists)
}

// ==================== Broadcast Tests ====================

func TestHub_NotifySubmissionUpdate_DeliversToSubscriber(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	client := registeredClient(t, hub)
	hub.SubscribeAttachment(client, 42)
	time.Sleep(10 * time.Millisecond)

	submission := &models.Submission{ID: 5, AttachmentID: 42, Status: models.SubmissionCompleted, Revision: 3}
	hub.NotifySubmissionUpdate(42, submission)

	select {
	case data := <-client.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, MessageTypeSubmissionUpdate, msg.Type)
		assert.Equal(t, uint(42), msg.AttachmentID)

		// The push carries the revision for client-side ordering
		payload, err := json.Marshal(msg.Submission)
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"revision":3`)
	case <-time.After(time.Second):
		t.Fatal("no submission push received")
	}
}

func TestHub_BroadcastNewMessage_DeliversToConversationSubscriber(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	client := registeredClient(t, hub)
	hub.SubscribeConversation(client, 9)
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastNewMessage(9, &NewMessagePayload{ID: 1, SenderEmail: "jane@customer.com", Subject: "Bill"})

	select {
	case data := <-client.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, MessageTypeNewMessage, msg.Type)
		assert.Equal(t, uint(9), msg.ConversationID)
	case <-time.After(time.Second):
		t.Fatal("no message push received")
	}
}

func TestHub_BroadcastToUnsubscribedTopic_NoDelivery(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	client := registeredClient(t, hub)
	hub.SubscribeAttachment(client, 42)
	time.Sleep(10 * time.Millisecond)

	hub.NotifySubmissionUpdate(99, &models.Submission{ID: 1, AttachmentID: 99})
	time.Sleep(10 * time.Millisecond)

	select {
	case <-client.send:
		t.Fatal("received push for a different attachment")
	default:
	}
}

// ==================== Upgrader Tests ====================

func TestNewSecureUpgrader_ValidOrigin(t *testing.T) {
	upgrader := NewSecureUpgrader([]string{"http://localhost:3000", "http://example.com"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://example.com")

	assert.True(t, upgrader.CheckOrigin(req))
}

func TestNewSecureUpgrader_InvalidOrigin(t *testing.T) {
	upgrader := NewSecureUpgrader([]string{"http://localhost:3000"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://malicious.com")

	assert.False(t, upgrader.CheckOrigin(req))
}

func TestNewSecureUpgrader_EmptyOriginIsSameOrigin(t *testing.T) {
	upgrader := NewSecureUpgrader([]string{"http://localhost:3000"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	assert.True(t, upgrader.CheckOrigin(req))
}

func TestNewSecureUpgrader_DefaultsToLocalhost(t *testing.T) {
	upgrader := NewSecureUpgrader(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	assert.True(t, upgrader.CheckOrigin(req))
}

func TestDefaultUpgrader_AllowsAll(t *testing.T) {
	upgrader := DefaultUpgrader()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://anything.example")

	assert.True(t, upgrader.CheckOrigin(req))
}
