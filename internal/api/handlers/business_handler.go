package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/relaydesk/relaydesk-backend/internal/api/response"
	"github.com/relaydesk/relaydesk-backend/internal/models"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
	"github.com/relaydesk/relaydesk-backend/internal/services"
	"github.com/relaydesk/relaydesk-backend/internal/validator"
)

// BusinessHandler handles business-related HTTP requests
type BusinessHandler struct {
	repo     repository.BusinessRepository
	verifier services.DomainVerifier
}

// NewBusinessHandler creates a new BusinessHandler
func NewBusinessHandler(repo repository.BusinessRepository, verifier services.DomainVerifier) *BusinessHandler {
	return &BusinessHandler{repo: repo, verifier: verifier}
}

// CreateBusinessRequest represents the request body for creating a business
type CreateBusinessRequest struct {
	Name          string `json:"name" validate:"required"`
	InboundDomain string `json:"inbound_domain" validate:"required"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

// UpdateBusinessRequest represents the request body for updating a business
type UpdateBusinessRequest struct {
	Name          string `json:"name,omitempty"`
	InboundDomain string `json:"inbound_domain,omitempty"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

// Create handles POST /api/businesses
func (h *BusinessHandler) Create(c echo.Context) error {
	var req CreateBusinessRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.Name == "" {
		return response.BadRequest(c, "name is required")
	}
	if req.InboundDomain == "" {
		return response.BadRequest(c, "inbound_domain is required")
	}
	if err := validator.ValidateDomain(req.InboundDomain); err != nil {
		return response.BadRequest(c, "inbound_domain is not a valid domain")
	}

	business := &models.Business{
		Name:          req.Name,
		InboundDomain: req.InboundDomain,
		IsActive:      true,
	}
	if req.IsActive != nil {
		business.IsActive = *req.IsActive
	}

	if err := h.repo.Create(c.Request().Context(), business); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "inbound domain already registered")
		}
		return response.InternalError(c, "failed to create business")
	}

	return response.Created(c, business)
}

// List handles GET /api/businesses
func (h *BusinessHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("active_only") == "true"

	businesses, err := h.repo.List(c.Request().Context(), activeOnly)
	if err != nil {
		return response.InternalError(c, "failed to list businesses")
	}

	return response.Success(c, businesses)
}

// Get handles GET /api/businesses/:id
func (h *BusinessHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid business ID")
	}

	business, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "business not found")
		}
		return response.InternalError(c, "failed to get business")
	}

	return response.Success(c, business)
}

// Update handles PUT /api/businesses/:id
func (h *BusinessHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid business ID")
	}

	var req UpdateBusinessRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	business, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "business not found")
		}
		return response.InternalError(c, "failed to get business")
	}

	if req.Name != "" {
		business.Name = req.Name
	}
	if req.InboundDomain != "" {
		if err := validator.ValidateDomain(req.InboundDomain); err != nil {
			return response.BadRequest(c, "inbound_domain is not a valid domain")
		}
		business.InboundDomain = req.InboundDomain
	}
	if req.IsActive != nil {
		business.IsActive = *req.IsActive
	}

	if err := h.repo.Update(c.Request().Context(), business); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "inbound domain already registered")
		}
		return response.InternalError(c, "failed to update business")
	}

	return response.Success(c, business)
}

// DNSSetup handles GET /api/businesses/:id/dns-setup
// Returns the DNS records the tenant must create so inbound mail for
// their domain reaches the relay. format=bind renders a zone snippet.
func (h *BusinessHandler) DNSSetup(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid business ID")
	}

	business, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "business not found")
		}
		return response.InternalError(c, "failed to get business")
	}

	guide := h.verifier.SetupGuide(business)
	if c.QueryParam("format") == "bind" {
		return c.String(http.StatusOK, guide.ExportBIND())
	}
	return response.Success(c, guide)
}

// VerifyDNS handles POST /api/businesses/:id/verify-dns
// Runs live MX and ownership checks against the inbound domain.
func (h *BusinessHandler) VerifyDNS(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid business ID")
	}

	business, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "business not found")
		}
		return response.InternalError(c, "failed to get business")
	}

	result, err := h.verifier.VerifyBusiness(c.Request().Context(), business)
	if err != nil {
		return response.InternalError(c, "DNS verification failed")
	}

	return response.Success(c, result)
}

// Delete handles DELETE /api/businesses/:id
func (h *BusinessHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid business ID")
	}

	if err := h.repo.Delete(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "business not found")
		}
		return response.InternalError(c, "failed to delete business")
	}

	return response.NoContent(c)
}
