package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/relaydesk/relaydesk-backend/internal/models"
	"gorm.io/gorm"
)

// BusinessRepository defines the interface for business (tenant) data access
type BusinessRepository interface {
	Create(ctx context.Context, business *models.Business) error
	GetByID(ctx context.Context, id uint) (*models.Business, error)
	GetByPublicID(ctx context.Context, publicID string) (*models.Business, error)
	GetByInboundDomain(ctx context.Context, domain string) (*models.Business, error)
	List(ctx context.Context, activeOnly bool) ([]models.Business, error)
	Update(ctx context.Context, business *models.Business) error
	Delete(ctx context.Context, id uint) error
}

// businessRepository implements BusinessRepository using GORM
type businessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository creates a new BusinessRepository instance
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

// Create creates a new business, assigning a public ID when none is set
func (r *businessRepository) Create(ctx context.Context, business *models.Business) error {
	if business.PublicID == "" {
		business.PublicID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Create(business)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("business with inbound domain '%s' already exists: %w", business.InboundDomain, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create business: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a business by its ID
func (r *businessRepository) GetByID(ctx context.Context, id uint) (*models.Business, error) {
	var business models.Business
	result := r.db.WithContext(ctx).First(&business, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business by ID: %w", result.Error)
	}
	return &business, nil
}

// GetByPublicID retrieves a business by its public UUID
func (r *businessRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Business, error) {
	var business models.Business
	result := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&business)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business by public ID: %w", result.Error)
	}
	return &business, nil
}

// GetByInboundDomain retrieves the business that receives mail for a domain
func (r *businessRepository) GetByInboundDomain(ctx context.Context, domain string) (*models.Business, error) {
	var business models.Business
	result := r.db.WithContext(ctx).Where("inbound_domain = ?", domain).First(&business)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business by inbound domain: %w", result.Error)
	}
	return &business, nil
}

// List retrieves all businesses, optionally filtering by active status
func (r *businessRepository) List(ctx context.Context, activeOnly bool) ([]models.Business, error) {
	var businesses []models.Business
	query := r.db.WithContext(ctx)

	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	result := query.Order("name ASC").Find(&businesses)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", result.Error)
	}
	return businesses, nil
}

// Update updates an existing business
func (r *businessRepository) Update(ctx context.Context, business *models.Business) error {
	result := r.db.WithContext(ctx).Save(business)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("business with inbound domain '%s' already exists: %w", business.InboundDomain, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to update business: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a business by its ID (cascade deletes conversations, messages, attachments)
func (r *businessRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Business{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete business: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
