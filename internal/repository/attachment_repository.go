package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"gorm.io/gorm"
)

// AttachmentRepository defines the interface for attachment data access.
// It only manages metadata rows; files are released by the attachment
// processor once no row references their storage path.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id uint) (*models.Attachment, error)
	GetLinkedByID(ctx context.Context, id uint) (*models.Attachment, error)
	Delete(ctx context.Context, id uint) error
	CountByStoragePath(ctx context.Context, storagePath string) (int64, error)
	ListUnreferenced(ctx context.Context, uploadedBefore time.Time) ([]models.Attachment, error)
	ListStoragePaths(ctx context.Context) ([]string, error)
}

// attachmentRepository implements AttachmentRepository using GORM
type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new AttachmentRepository instance
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

// Create creates a new attachment record
func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	result := r.db.WithContext(ctx).Omit("Owner").Create(attachment)
	if result.Error != nil {
		return fmt.Errorf("failed to create attachment: %w", result.Error)
	}
	return nil
}

// GetByID retrieves an attachment by its ID
func (r *attachmentRepository) GetByID(ctx context.Context, id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	result := r.db.WithContext(ctx).First(&attachment, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attachment by ID: %w", result.Error)
	}
	return &attachment, nil
}

// GetLinkedByID retrieves an attachment only if a message currently links to it
func (r *attachmentRepository) GetLinkedByID(ctx context.Context, id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	result := r.db.WithContext(ctx).
		Joins("JOIN messages ON messages.attachment_id = attachments.id").
		Where("attachments.id = ?", id).
		First(&attachment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get linked attachment: %w", result.Error)
	}
	return &attachment, nil
}

// Delete deletes an attachment row by its ID
func (r *attachmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Attachment{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete attachment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStoragePath counts attachment rows sharing a physical file
func (r *attachmentRepository) CountByStoragePath(ctx context.Context, storagePath string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Attachment{}).Where("storage_path = ?", storagePath).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count attachments by storage path: %w", result.Error)
	}
	return count, nil
}

// ListUnreferenced returns attachment rows uploaded before the cutoff that no
// message links to
func (r *attachmentRepository) ListUnreferenced(ctx context.Context, uploadedBefore time.Time) ([]models.Attachment, error) {
	var attachments []models.Attachment
	result := r.db.WithContext(ctx).
		Where("uploaded_at < ?", uploadedBefore).
		Where("NOT EXISTS (SELECT 1 FROM messages WHERE messages.attachment_id = attachments.id)").
		Order("id").
		Find(&attachments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list unreferenced attachments: %w", result.Error)
	}
	return attachments, nil
}

// ListStoragePaths returns every distinct storage path referenced by a row
func (r *attachmentRepository) ListStoragePaths(ctx context.Context) ([]string, error) {
	var paths []string
	result := r.db.WithContext(ctx).Model(&models.Attachment{}).Distinct().Pluck("storage_path", &paths)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list storage paths: %w", result.Error)
	}
	return paths, nil
}
