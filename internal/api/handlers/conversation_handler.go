package handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/relaydesk/relaydesk-backend/internal/api/response"
	"github.com/relaydesk/relaydesk-backend/internal/models"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
	"github.com/relaydesk/relaydesk-backend/internal/validator"
)

// ConversationHandler handles conversation-related HTTP requests
type ConversationHandler struct {
	conversationRepo repository.ConversationRepository
	businessRepo     repository.BusinessRepository
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(conversationRepo repository.ConversationRepository, businessRepo repository.BusinessRepository) *ConversationHandler {
	return &ConversationHandler{
		conversationRepo: conversationRepo,
		businessRepo:     businessRepo,
	}
}

// CreateConversationRequest represents the request body for opening a conversation
type CreateConversationRequest struct {
	BusinessID    uint   `json:"business_id" validate:"required"`
	Channel       string `json:"channel" validate:"required"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
}

// Create handles POST /api/conversations
// Reuses an existing thread for the same business/channel/customer.
func (h *ConversationHandler) Create(c echo.Context) error {
	var req CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.BusinessID == 0 {
		return response.BadRequest(c, "business_id is required")
	}
	channel := models.Channel(req.Channel)
	switch channel {
	case models.ChannelEmail, models.ChannelWhatsApp, models.ChannelSMS, models.ChannelWidget:
	default:
		return response.BadRequest(c, "unknown channel")
	}
	if req.CustomerEmail == "" {
		return response.BadRequest(c, "customer_email is required")
	}
	if err := validator.ValidateEmail(req.CustomerEmail); err != nil {
		return response.BadRequest(c, "customer_email is not a valid address")
	}
	if req.CustomerPhone != "" {
		if err := validator.ValidatePhone(req.CustomerPhone); err != nil {
			return response.BadRequest(c, "customer_phone is not a valid phone number")
		}
	}

	business, err := h.businessRepo.GetByID(c.Request().Context(), req.BusinessID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "business not found")
		}
		return response.InternalError(c, "failed to get business")
	}

	conversation, created, err := h.conversationRepo.GetOrCreate(
		c.Request().Context(), business.ID, channel, req.CustomerEmail, req.CustomerName)
	if err != nil {
		return response.InternalError(c, "failed to create conversation")
	}

	if req.CustomerPhone != "" && conversation.CustomerPhone != req.CustomerPhone {
		conversation.CustomerPhone = req.CustomerPhone
		if err := h.conversationRepo.Update(c.Request().Context(), conversation); err != nil {
			return response.InternalError(c, "failed to update conversation")
		}
	}

	if created {
		return response.Created(c, conversation)
	}
	return response.Success(c, conversation)
}

// List handles GET /api/conversations?business_id=N
// Results are ordered by most recent activity and carry unread counts.
func (h *ConversationHandler) List(c echo.Context) error {
	businessIDStr := c.QueryParam("business_id")
	if businessIDStr == "" {
		return response.BadRequest(c, "business_id is required")
	}

	businessID, err := strconv.ParseUint(businessIDStr, 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid business_id")
	}

	// Verify business exists
	_, err = h.businessRepo.GetByID(c.Request().Context(), uint(businessID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "business not found")
		}
		return response.InternalError(c, "failed to get business")
	}

	limit, offset := paginationParams(c)

	conversations, total, err := h.conversationRepo.ListByBusiness(c.Request().Context(), uint(businessID), limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list conversations")
	}

	return response.Paginated(c, conversations, total, limit, offset)
}

// Get handles GET /api/conversations/:id
func (h *ConversationHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid conversation ID")
	}

	conversation, err := h.conversationRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "conversation not found")
		}
		return response.InternalError(c, "failed to get conversation")
	}

	return response.Success(c, conversation)
}

// Delete handles DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid conversation ID")
	}

	if err := h.conversationRepo.Delete(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "conversation not found")
		}
		return response.InternalError(c, "failed to delete conversation")
	}

	return response.NoContent(c)
}

// paginationParams reads limit/offset query params with sane bounds
func paginationParams(c echo.Context) (int, int) {
	limit := 0
	offset := 0

	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil {
			offset = parsed
		}
	}

	return validator.ValidatePagination(limit, offset)
}
