package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	apperrors "github.com/relaydesk/relaydesk-backend/internal/errors"
	"github.com/relaydesk/relaydesk-backend/internal/models"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
	"github.com/relaydesk/relaydesk-backend/internal/storage"
	"gorm.io/datatypes"
)

// Notifier pushes submission changes to connected clients. The websocket
// hub implements it; a nil notifier disables pushes.
type Notifier interface {
	NotifySubmissionUpdate(attachmentID uint, submission *models.Submission)
}

// Pipeline orchestrates attachment processing: conversion, extraction,
// parsed-data persistence, and billing submission. Operations are
// sequential within one call; separate attachments proceed independently.
type Pipeline struct {
	attachments   repository.AttachmentRepository
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	businesses    repository.BusinessRepository
	submissions   repository.SubmissionRepository
	objects       storage.ObjectStorage
	converter     *Converter
	extractor     Extractor
	billing       BillingClient
	notifier      Notifier
	logger        *slog.Logger
}

// Config carries the pipeline's collaborators
type Config struct {
	Attachments   repository.AttachmentRepository
	Messages      repository.MessageRepository
	Conversations repository.ConversationRepository
	Businesses    repository.BusinessRepository
	Submissions   repository.SubmissionRepository
	Objects       storage.ObjectStorage
	Extractor     Extractor
	Billing       BillingClient
	Notifier      Notifier
	Logger        *slog.Logger
}

// New creates a Pipeline instance
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		attachments:   cfg.Attachments,
		messages:      cfg.Messages,
		conversations: cfg.Conversations,
		businesses:    cfg.Businesses,
		submissions:   cfg.Submissions,
		objects:       cfg.Objects,
		converter:     NewConverter(cfg.Objects),
		extractor:     cfg.Extractor,
		billing:       cfg.Billing,
		notifier:      cfg.Notifier,
		logger:        logger,
	}
}

// ParseOutcome is what a parse operation returns to the API layer
type ParseOutcome struct {
	Steps      []ParsingStep  `json:"steps"`
	ParsedData datatypes.JSON `json:"parsed_data,omitempty"`
	Skipped    bool           `json:"skipped,omitempty"`
}

// Parse runs conversion (PDFs only) and extraction for an attachment,
// storing the extracted data on the attachment row. Parse never chains
// into submission. The step log reflects exactly how far it got.
func (p *Pipeline) Parse(ctx context.Context, attachmentID uint, forceReparse bool) (*ParseOutcome, error) {
	log := &StepLog{}
	outcome := &ParseOutcome{}

	attachment, err := p.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrAttachmentNotFound
		}
		return nil, err
	}

	message, _, business, err := p.resolveOwners(ctx, attachment)
	if err != nil {
		return nil, err
	}

	attachmentURL := p.objects.PublicURL(attachment.FilePath)

	// PDFs are rasterized first; the extraction service only takes images
	if attachment.IsPDF() {
		log.Set(StepConvert, StepProcessing, "")
		convertedURL, err := p.convert(attachment)
		if err != nil {
			log.Set(StepConvert, StepError, err.Error())
			outcome.Steps = log.Steps()
			return outcome, fmt.Errorf("%v: %w", err, apperrors.ErrConversionFailed)
		}
		log.Set(StepConvert, StepComplete, "")
		attachmentURL = convertedURL
	}

	log.Set(StepExtract, StepProcessing, "")
	result, err := p.extractor.Extract(ctx, ExtractRequest{
		AttachmentID:   attachment.ID,
		MessageID:      message.ID,
		AttachmentURL:  attachmentURL,
		AttachmentType: attachment.ContentType,
		BusinessID:     business.PublicID,
		ForceReparse:   forceReparse,
	})
	if err != nil {
		log.Set(StepExtract, StepError, err.Error())
		outcome.Steps = log.Steps()
		p.logger.Warn("extraction failed", "attachment_id", attachment.ID, "error", err)
		return outcome, err
	}
	log.Set(StepExtract, StepComplete, "")
	outcome.Skipped = result.Skipped

	// A skipped extraction with no payload means the service kept the
	// data it already had; leave the stored row alone.
	if len(result.ParsedData) > 0 {
		log.Set(StepStore, StepProcessing, "")
		if err := p.attachments.UpdateParsedData(ctx, attachment.ID, datatypes.JSON(result.ParsedData)); err != nil {
			log.Set(StepStore, StepError, err.Error())
			outcome.Steps = log.Steps()
			return outcome, err
		}
		log.Set(StepStore, StepComplete, "")
		outcome.ParsedData = datatypes.JSON(result.ParsedData)
	} else {
		outcome.ParsedData = attachment.ParsedData
	}

	outcome.Steps = log.Steps()
	return outcome, nil
}

// convert reads the source PDF from storage and rasterizes its first page
func (p *Pipeline) convert(attachment *models.Attachment) (string, error) {
	reader, err := p.objects.Get(attachment.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	defer reader.Close()

	pdfBytes, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}

	return p.converter.ConvertFirstPage(attachment.ID, pdfBytes)
}

// Submit builds the billing request from the stored parsed data and
// records the attempt as a new Submission row. The attachment must have
// been parsed first; that check happens before any network call.
func (p *Pipeline) Submit(ctx context.Context, attachmentID uint) (*models.Submission, error) {
	attachment, err := p.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrAttachmentNotFound
		}
		return nil, err
	}
	if !attachment.HasParsedData() {
		return nil, apperrors.ErrParseRequired
	}

	_, conversation, business, err := p.resolveOwners(ctx, attachment)
	if err != nil {
		return nil, err
	}

	bill, err := decodeParsedBill(attachment.ParsedData)
	if err != nil {
		return nil, err
	}

	// The phone the customer messaged from beats whatever was printed
	// on the bill.
	phone := bill.Phone
	if conversation.CustomerPhone != "" {
		phone = conversation.CustomerPhone
	}

	submission := &models.Submission{
		AttachmentID: attachment.ID,
		Status:       models.SubmissionPending,
		Phone:        phone,
		MPRN:         bill.MPRN,
		MCCType:      bill.MCCType,
		DGType:       bill.DGType,
		GPRN:         bill.GPRN,
	}
	if err := p.submissions.Create(ctx, submission); err != nil {
		return nil, err
	}
	p.notify(attachment.ID, submission)

	result, err := p.billing.Submit(ctx, SubmitBillRequest{
		AttachmentID: attachment.ID,
		BusinessID:   business.PublicID,
		DocumentType: string(bill.classify()),
		Phone:        phone,
		MPRN:         bill.MPRN,
		MCCType:      bill.MCCType,
		DGType:       bill.DGType,
		GPRN:         bill.GPRN,
		ParsedData:   json.RawMessage(attachment.ParsedData),
	})

	// A transport failure and a rejected submission are the same
	// terminal outcome: the row records it, the operator resends.
	if err != nil {
		return p.recordOutcome(ctx, submission, &BillingResult{Error: err.Error()})
	}
	return p.recordOutcome(ctx, submission, result)
}

// Resubmit re-sends a failed submission, optionally with a manual
// payload override. An invalid override aborts before any store write
// or network call.
func (p *Pipeline) Resubmit(ctx context.Context, submissionID uint, override []byte) (*models.Submission, error) {
	submission, err := p.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrSubmissionNotFound
		}
		return nil, err
	}

	if len(override) > 0 && !json.Valid(override) {
		return nil, apperrors.ErrInvalidOverride
	}
	if submission.Status == models.SubmissionCompleted {
		return nil, apperrors.ErrInvalidTransition
	}

	if len(override) > 0 {
		if err := p.submissions.SaveOverride(ctx, submission.ID, datatypes.JSON(override)); err != nil {
			return nil, err
		}
		submission.ManualPayloadOverride = datatypes.JSON(override)
	}

	// Back to pending for the new attempt
	if submission.Status == models.SubmissionFailed {
		submission.Status = models.SubmissionPending
		submission.ErrorMessage = ""
		submission.HTTPStatus = nil
		if err := p.submissions.Update(ctx, submission); err != nil {
			return nil, err
		}
		p.notify(submission.AttachmentID, submission)
	}

	// Every resend attempt counts, whatever its outcome
	submission.RetryCount++

	result, err := p.billing.Resend(ctx, ResendRequest{
		SubmissionID: submission.ID,
		Fields:       json.RawMessage(submission.ManualPayloadOverride),
	})
	if err != nil {
		return p.recordOutcome(ctx, submission, &BillingResult{Error: err.Error()})
	}
	return p.recordOutcome(ctx, submission, result)
}

// recordOutcome persists the billing result on the submission row and
// broadcasts the change
func (p *Pipeline) recordOutcome(ctx context.Context, submission *models.Submission, result *BillingResult) (*models.Submission, error) {
	if result.Success {
		now := time.Now()
		submission.Status = models.SubmissionCompleted
		submission.SubmittedAt = &now
		submission.ErrorMessage = ""
	} else {
		submission.Status = models.SubmissionFailed
		submission.ErrorMessage = result.Error
	}
	if result.HTTPStatus != 0 {
		status := result.HTTPStatus
		submission.HTTPStatus = &status
	}
	if len(result.Body) > 0 {
		submission.OnebillResponse = datatypes.JSON(result.Body)
	}

	if err := p.submissions.Update(ctx, submission); err != nil {
		return nil, err
	}
	p.notify(submission.AttachmentID, submission)

	if !result.Success {
		p.logger.Warn("billing submission failed",
			"submission_id", submission.ID,
			"attachment_id", submission.AttachmentID,
			"http_status", result.HTTPStatus)
	}
	return submission, nil
}

// RequestSample renders the billing request that Submit would send for
// an attachment, for operator inspection. No network, no writes.
func (p *Pipeline) RequestSample(ctx context.Context, attachmentID uint) (*APIRequestSample, error) {
	attachment, err := p.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrAttachmentNotFound
		}
		return nil, err
	}
	if !attachment.HasParsedData() {
		return nil, apperrors.ErrParseRequired
	}

	_, conversation, _, err := p.resolveOwners(ctx, attachment)
	if err != nil {
		return nil, err
	}

	return RenderAPIRequestSample(attachment.ParsedData, conversation.CustomerPhone)
}

// resolveOwners walks attachment → message → conversation → business
func (p *Pipeline) resolveOwners(ctx context.Context, attachment *models.Attachment) (*models.Message, *models.Conversation, *models.Business, error) {
	message, err := p.messages.GetByID(ctx, attachment.MessageID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve message: %w", err)
	}
	conversation, err := p.conversations.GetByID(ctx, message.ConversationID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	business, err := p.businesses.GetByID(ctx, conversation.BusinessID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve business: %w", err)
	}
	return message, conversation, business, nil
}

func (p *Pipeline) notify(attachmentID uint, submission *models.Submission) {
	if p.notifier != nil {
		p.notifier.NotifySubmissionUpdate(attachmentID, submission)
	}
}
