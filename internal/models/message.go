package models

import (
	"time"
)

// Message represents a chat message. Content is stored HTML-escaped.
type Message struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AuthorID     uint       `gorm:"not null;index" json:"author_id"`
	Content      string     `gorm:"not null" json:"content"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	EditedAt     *time.Time `json:"edited_at,omitempty"`
	AttachmentID *uint      `gorm:"uniqueIndex" json:"attachment_id,omitempty"`

	// Relationships
	Author     User        `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Attachment *Attachment `gorm:"foreignKey:AttachmentID;constraint:OnDelete:SET NULL" json:"attachment,omitempty"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// HasAttachment reports whether the message links to an attachment row
func (m *Message) HasAttachment() bool {
	return m.AttachmentID != nil && m.Attachment != nil
}
