package handlers

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/relaydesk/relaydesk-backend/internal/api/response"
	apperrors "github.com/relaydesk/relaydesk-backend/internal/errors"
	"github.com/relaydesk/relaydesk-backend/internal/pipeline"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
	"github.com/relaydesk/relaydesk-backend/internal/storage"
)

// AttachmentHandler handles attachment-related HTTP requests, including
// the parse and submit stages of the processing pipeline.
type AttachmentHandler struct {
	attachmentRepo repository.AttachmentRepository
	messageRepo    repository.MessageRepository
	submissionRepo repository.SubmissionRepository
	objects        storage.ObjectStorage
	pipeline       *pipeline.Pipeline
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(
	attachmentRepo repository.AttachmentRepository,
	messageRepo repository.MessageRepository,
	submissionRepo repository.SubmissionRepository,
	objects storage.ObjectStorage,
	pl *pipeline.Pipeline,
) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentRepo: attachmentRepo,
		messageRepo:    messageRepo,
		submissionRepo: submissionRepo,
		objects:        objects,
		pipeline:       pl,
	}
}

// ParseRequest represents the request body for the parse endpoint
type ParseRequest struct {
	ForceReparse bool `json:"force_reparse"`
}

// List handles GET /api/messages/:id/attachments
func (h *AttachmentHandler) List(c echo.Context) error {
	messageID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	// Verify message exists
	_, err = h.messageRepo.GetByID(c.Request().Context(), uint(messageID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to get message")
	}

	attachments, err := h.attachmentRepo.ListByMessage(c.Request().Context(), uint(messageID))
	if err != nil {
		return response.InternalError(c, "failed to list attachments")
	}

	return response.Success(c, attachments)
}

// Get handles GET /api/attachments/:id
func (h *AttachmentHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	attachment, err := h.attachmentRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "attachment not found")
		}
		return response.InternalError(c, "failed to get attachment")
	}

	return response.Success(c, attachment)
}

// Download handles GET /api/attachments/:id/download
func (h *AttachmentHandler) Download(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	attachment, err := h.attachmentRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "attachment not found")
		}
		return response.InternalError(c, "failed to get attachment")
	}

	file, err := h.objects.Get(attachment.FilePath)
	if err != nil {
		return response.InternalError(c, "failed to retrieve file")
	}
	defer file.Close()

	c.Response().Header().Set("Content-Type", attachment.ContentType)
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, attachment.Filename))
	if attachment.SizeBytes > 0 {
		c.Response().Header().Set("Content-Length", strconv.FormatInt(attachment.SizeBytes, 10))
	}

	_, err = io.Copy(c.Response().Writer, file)
	if err != nil {
		return response.InternalError(c, "failed to send file")
	}

	return nil
}

// Parse handles POST /api/attachments/:id/parse
// Runs conversion and extraction for the attachment, never submission.
// The response carries the step log so clients can show progress per stage.
func (h *AttachmentHandler) Parse(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	// Body is optional, but a present body must be well-formed
	var req ParseRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	outcome, err := h.pipeline.Parse(c.Request().Context(), uint(id), req.ForceReparse)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, outcome)
}

// Submit handles POST /api/attachments/:id/submit
// Requires parsed data; a submission row is created and its outcome
// recorded regardless of whether the billing platform accepted it.
func (h *AttachmentHandler) Submit(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	submission, err := h.pipeline.Submit(c.Request().Context(), uint(id))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, submission)
}

// RequestSample handles GET /api/attachments/:id/request-sample
// Returns the billing request the parsed data would produce, without
// touching the network or the submission history.
func (h *AttachmentHandler) RequestSample(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	sample, err := h.pipeline.RequestSample(c.Request().Context(), uint(id))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, sample)
}

// LatestSubmission handles GET /api/attachments/:id/submissions/latest
// The newest row is the authoritative submission state for the attachment.
func (h *AttachmentHandler) LatestSubmission(c echo.Context) error {
	attachmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	submission, err := h.submissionRepo.LatestByAttachment(c.Request().Context(), uint(attachmentID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.Error(c, apperrors.ErrSubmissionNotFound)
		}
		return response.InternalError(c, "failed to get submission")
	}

	return response.Success(c, submission)
}

// ListSubmissions handles GET /api/attachments/:id/submissions
func (h *AttachmentHandler) ListSubmissions(c echo.Context) error {
	attachmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	// Verify attachment exists
	_, err = h.attachmentRepo.GetByID(c.Request().Context(), uint(attachmentID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "attachment not found")
		}
		return response.InternalError(c, "failed to get attachment")
	}

	submissions, err := h.submissionRepo.ListByAttachment(c.Request().Context(), uint(attachmentID))
	if err != nil {
		return response.InternalError(c, "failed to list submissions")
	}

	return response.Success(c, submissions)
}
