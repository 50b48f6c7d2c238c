package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/relaydesk/relaydesk-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionRepository defines the interface for billing submission data access
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	LatestByAttachment(ctx context.Context, attachmentID uint) (*models.Submission, error)
	ListByAttachment(ctx context.Context, attachmentID uint) ([]models.Submission, error)
	SaveOverride(ctx context.Context, id uint, override datatypes.JSON) error
	Update(ctx context.Context, submission *models.Submission) error
}

// submissionRepository implements SubmissionRepository using GORM
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new SubmissionRepository instance
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Create creates a new submission record
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.Status == "" {
		submission.Status = models.SubmissionPending
	}
	if !submission.Status.IsValid() {
		return fmt.Errorf("unknown submission status '%s': %w", submission.Status, ErrInvalidInput)
	}
	result := r.db.WithContext(ctx).Create(submission)
	if result.Error != nil {
		return fmt.Errorf("failed to create submission: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a submission by its ID
func (r *submissionRepository) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	result := r.db.WithContext(ctx).First(&submission, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission by ID: %w", result.Error)
	}
	return &submission, nil
}

// LatestByAttachment retrieves the most recent submission for an attachment.
// The newest row is authoritative for status badges and the realtime feed.
func (r *submissionRepository) LatestByAttachment(ctx context.Context, attachmentID uint) (*models.Submission, error) {
	var submission models.Submission
	result := r.db.WithContext(ctx).
		Where("attachment_id = ?", attachmentID).
		Order("created_at DESC, id DESC").
		First(&submission)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest submission: %w", result.Error)
	}
	return &submission, nil
}

// ListByAttachment retrieves the submission history for an attachment, newest first
func (r *submissionRepository) ListByAttachment(ctx context.Context, attachmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	result := r.db.WithContext(ctx).
		Where("attachment_id = ?", attachmentID).
		Order("created_at DESC, id DESC").
		Find(&submissions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", result.Error)
	}
	return submissions, nil
}

// SaveOverride stores a manual payload override without touching status,
// retry count or any other submission field
func (r *submissionRepository) SaveOverride(ctx context.Context, id uint, override datatypes.JSON) error {
	result := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).
		Update("manual_payload_override", override)
	if result.Error != nil {
		return fmt.Errorf("failed to save payload override: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Update persists a submission, validating the status transition against the
// stored row and bumping the revision so clients can discard stale pushes.
func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Submission
		if err := tx.First(&current, submission.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load submission for update: %w", err)
		}

		if current.Status != submission.Status && !current.Status.CanTransitionTo(submission.Status) {
			return fmt.Errorf("submission %d cannot move from %s to %s: %w",
				submission.ID, current.Status, submission.Status, ErrInvalidInput)
		}

		submission.Revision = current.Revision + 1
		if err := tx.Save(submission).Error; err != nil {
			return fmt.Errorf("failed to update submission: %w", err)
		}
		return nil
	})
}
