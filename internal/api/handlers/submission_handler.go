package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/relaydesk/relaydesk-backend/internal/api/response"
	"github.com/relaydesk/relaydesk-backend/internal/pipeline"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
)

// SubmissionHandler handles submission-related HTTP requests
type SubmissionHandler struct {
	submissionRepo repository.SubmissionRepository
	pipeline       *pipeline.Pipeline
}

// NewSubmissionHandler creates a new SubmissionHandler
func NewSubmissionHandler(submissionRepo repository.SubmissionRepository, pl *pipeline.Pipeline) *SubmissionHandler {
	return &SubmissionHandler{
		submissionRepo: submissionRepo,
		pipeline:       pl,
	}
}

// ResendSubmissionRequest represents the request body for resending a
// failed submission. Fields, when present, replace the payload the
// original submission sent.
type ResendSubmissionRequest struct {
	Fields json.RawMessage `json:"fields,omitempty"`
}

// Get handles GET /api/submissions/:id
func (h *SubmissionHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid submission ID")
	}

	submission, err := h.submissionRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "submission not found")
		}
		return response.InternalError(c, "failed to get submission")
	}

	return response.Success(c, submission)
}

// Resend handles POST /api/submissions/:id/resend
// Only failed submissions can be resent. An optional fields override is
// validated and stored before any network call.
func (h *SubmissionHandler) Resend(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid submission ID")
	}

	// Body is optional, but a present body must be well-formed
	var req ResendSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	submission, err := h.pipeline.Resubmit(c.Request().Context(), uint(id), req.Fields)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, submission)
}
