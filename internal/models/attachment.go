package models

import (
	"time"
)

// Attachment represents an uploaded file. StoragePath is content-addressed
// (hex digest + extension), so several rows may share one physical file.
type Attachment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	DisplayName string    `gorm:"size:255" json:"file_name"`
	StoragePath string    `gorm:"size:500;not null;index" json:"-"`
	SizeBytes   int64     `json:"size_bytes"`
	MimeType    string    `gorm:"size:100" json:"mime_type"`
	ContentHash string    `gorm:"size:64;not null" json:"content_hash"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	// Relationships
	Owner User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}
