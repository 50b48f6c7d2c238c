package handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/relaydesk/relaydesk-backend/internal/api/response"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
	"github.com/relaydesk/relaydesk-backend/internal/segmenter"
)

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	segmenter        *segmenter.Segmenter
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageRepo repository.MessageRepository, conversationRepo repository.ConversationRepository) *MessageHandler {
	return &MessageHandler{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		segmenter:        segmenter.New(),
	}
}

// MessageContentResponse is the segmented view of a message body
type MessageContentResponse struct {
	MainContent string `json:"main_content"`
	Signature   string `json:"signature,omitempty"`
	QuotedText  string `json:"quoted_text,omitempty"`
	IsHTML      bool   `json:"is_html"`
	Preview     string `json:"preview"`
}

// List handles GET /api/conversations/:id/messages
func (h *MessageHandler) List(c echo.Context) error {
	conversationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid conversation ID")
	}

	// Verify conversation exists
	_, err = h.conversationRepo.GetByID(c.Request().Context(), uint(conversationID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "conversation not found")
		}
		return response.InternalError(c, "failed to get conversation")
	}

	limit, offset := paginationParams(c)

	messages, total, err := h.messageRepo.ListByConversation(c.Request().Context(), uint(conversationID), limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list messages")
	}

	return response.Paginated(c, messages, total, limit, offset)
}

// Get handles GET /api/messages/:id
func (h *MessageHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	message, err := h.messageRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to get message")
	}

	// Auto mark as read
	if !message.IsRead {
		_ = h.messageRepo.MarkAsRead(c.Request().Context(), uint(id))
		message.IsRead = true
	}

	return response.Success(c, message)
}

// Content handles GET /api/messages/:id/content
// Returns the body split into main content, signature, and quoted reply,
// plus a compact single-line preview of the main content.
func (h *MessageHandler) Content(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	message, err := h.messageRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to get message")
	}

	body := message.BodyText
	if body == "" {
		body = message.BodyHTML
	}

	content := h.segmenter.Segment(body, message.Subject)

	return response.Success(c, MessageContentResponse{
		MainContent: content.MainContent,
		Signature:   content.Signature,
		QuotedText:  content.QuotedText,
		IsHTML:      content.IsHTML,
		Preview:     segmenter.CompactPreview(content.MainContent),
	})
}

// MarkAsRead handles PATCH /api/messages/:id/read
func (h *MessageHandler) MarkAsRead(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messageRepo.MarkAsRead(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to mark message as read")
	}

	return response.SuccessWithMessage(c, nil, "message marked as read")
}

// Delete handles DELETE /api/messages/:id
func (h *MessageHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messageRepo.Delete(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to delete message")
	}

	return response.NoContent(c)
}
