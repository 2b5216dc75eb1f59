package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Message, error)
	Update(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, id uint) error
	ListRecent(ctx context.Context, limit int) ([]models.Message, error)
}

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create creates a new message
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	result := r.db.WithContext(ctx).Omit("Author", "Attachment").Create(message)
	if result.Error != nil {
		return fmt.Errorf("failed to create message: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a message by its ID with author and attachment preloaded
func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).Preload("Author").Preload("Attachment").First(&message, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", result.Error)
	}
	return &message, nil
}

// GetForUpdate loads a message row and, on postgres, locks it until the
// surrounding transaction ends. Relationships are not loaded.
func (r *messageRepository) GetForUpdate(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	result := forUpdate(r.db.WithContext(ctx)).First(&message, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock message: %w", result.Error)
	}
	return &message, nil
}

// Update writes the mutable columns of a message
func (r *messageRepository) Update(ctx context.Context, message *models.Message) error {
	result := r.db.WithContext(ctx).Model(message).
		Select("content", "edited_at", "attachment_id").
		Updates(map[string]interface{}{
			"content":       message.Content,
			"edited_at":     message.EditedAt,
			"attachment_id": message.AttachmentID,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a message by its ID
func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecent returns up to limit messages, newest first. Messages created in
// the same instant are ordered by descending ID.
func (r *messageRepository) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	result := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Attachment").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list messages: %w", result.Error)
	}
	return messages, nil
}
