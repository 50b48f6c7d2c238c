package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/relaydesk/relaydesk-backend/internal/models"
	"gorm.io/gorm"
)

// ConversationRepository defines the interface for conversation data access
type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	GetByCustomer(ctx context.Context, businessID uint, channel models.Channel, customerEmail string) (*models.Conversation, error)
	GetOrCreate(ctx context.Context, businessID uint, channel models.Channel, customerEmail, customerName string) (*models.Conversation, bool, error)
	Update(ctx context.Context, conversation *models.Conversation) error
	ListByBusiness(ctx context.Context, businessID uint, limit, offset int) ([]models.ConversationWithUnreadCount, int64, error)
	Delete(ctx context.Context, id uint) error
}

// conversationRepository implements ConversationRepository using GORM
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository instance
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create creates a new conversation
func (r *conversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	result := r.db.WithContext(ctx).Create(conversation)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("conversation for '%s' on %s already exists: %w", conversation.CustomerEmail, conversation.Channel, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create conversation: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a conversation by its ID
func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	result := r.db.WithContext(ctx).First(&conversation, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation by ID: %w", result.Error)
	}
	return &conversation, nil
}

// Update persists changes to a conversation
func (r *conversationRepository) Update(ctx context.Context, conversation *models.Conversation) error {
	result := r.db.WithContext(ctx).Save(conversation)
	if result.Error != nil {
		return fmt.Errorf("failed to update conversation: %w", result.Error)
	}
	return nil
}

// GetByCustomer retrieves a conversation by its (business, channel, customer) key
func (r *conversationRepository) GetByCustomer(ctx context.Context, businessID uint, channel models.Channel, customerEmail string) (*models.Conversation, error) {
	var conversation models.Conversation
	result := r.db.WithContext(ctx).
		Where("business_id = ? AND channel = ? AND customer_email = ?", businessID, channel, customerEmail).
		First(&conversation)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation by customer: %w", result.Error)
	}
	return &conversation, nil
}

// GetOrCreate retrieves a conversation for the customer or creates it if it
// doesn't exist. Returns the conversation, a boolean indicating if it was
// created, and any error.
func (r *conversationRepository) GetOrCreate(ctx context.Context, businessID uint, channel models.Channel, customerEmail, customerName string) (*models.Conversation, bool, error) {
	// Try to find existing conversation
	conversation, err := r.GetByCustomer(ctx, businessID, channel, customerEmail)
	if err == nil {
		return conversation, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	// Create new conversation
	conversation = &models.Conversation{
		BusinessID:    businessID,
		Channel:       channel,
		CustomerEmail: customerEmail,
		CustomerName:  customerName,
	}

	if err := r.Create(ctx, conversation); err != nil {
		// Handle race condition - another request might have created it
		if errors.Is(err, ErrDuplicateEntry) {
			conversation, err = r.GetByCustomer(ctx, businessID, channel, customerEmail)
			if err != nil {
				return nil, false, err
			}
			return conversation, false, nil
		}
		return nil, false, err
	}

	return conversation, true, nil
}

// ListByBusiness retrieves all conversations for a business with pagination and unread count
func (r *conversationRepository) ListByBusiness(ctx context.Context, businessID uint, limit, offset int) ([]models.ConversationWithUnreadCount, int64, error) {
	var total int64

	// Count total conversations for this business
	if err := r.db.WithContext(ctx).Model(&models.Conversation{}).Where("business_id = ?", businessID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	// Get conversations with unread count
	var results []models.ConversationWithUnreadCount

	query := `
		SELECT
			c.*,
			COALESCE((SELECT COUNT(*) FROM messages msg WHERE msg.conversation_id = c.id AND msg.is_read = false), 0) as unread_count
		FROM conversations c
		WHERE c.business_id = ?
		ORDER BY c.updated_at DESC
		LIMIT ? OFFSET ?
	`

	if err := r.db.WithContext(ctx).Raw(query, businessID, limit, offset).Scan(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}

	return results, total, nil
}

// Delete deletes a conversation by its ID (cascade deletes messages and attachments)
func (r *conversationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Conversation{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete conversation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
