package fixtures

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-chat-backend/internal/database"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Magic numbers recognised by content sniffing
var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

// PNGBytes returns a PNG-looking payload of exactly size bytes
func PNGBytes(size int) []byte {
	return padded(pngHeader, size)
}

// PDFBytes returns a PDF-looking payload of exactly size bytes
func PDFBytes(size int) []byte {
	return padded(pdfHeader, size)
}

// TextBytes returns plain text
func TextBytes(text string) []byte {
	return []byte(text)
}

func padded(header []byte, size int) []byte {
	if size < len(header) {
		size = len(header)
	}
	buf := make([]byte, size)
	copy(buf, header)
	return buf
}

// OpenSQLite opens a migrated sqlite database in a temp directory owned by t
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.ConnectWithLogger(database.DriverSQLite, filepath.Join(t.TempDir(), "chat.db"), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// CreateUser inserts a user row with a placeholder password hash
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := NewUserBuilder().WithID(0).WithUsername(username).Build()
	require.NoError(t, db.Create(user).Error)
	return user
}

// UserBuilder creates test User instances with fluent API
type UserBuilder struct {
	user models.User
}

// NewUserBuilder creates a new UserBuilder with sensible defaults
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		user: models.User{
			ID:           1,
			Username:     "alice",
			PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
			CreatedAt:    time.Now(),
		},
	}
}

// WithID sets the user ID
func (b *UserBuilder) WithID(id uint) *UserBuilder {
	b.user.ID = id
	return b
}

// WithUsername sets the username
func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.user.Username = username
	return b
}

// Build returns the constructed User
func (b *UserBuilder) Build() *models.User {
	u := b.user
	return &u
}

// MessageBuilder creates test Message instances with fluent API
type MessageBuilder struct {
	message models.Message
}

// NewMessageBuilder creates a new MessageBuilder with sensible defaults
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		message: models.Message{
			ID:        1,
			AuthorID:  1,
			Content:   "hello there",
			CreatedAt: time.Now(),
			Author:    models.User{ID: 1, Username: "alice"},
		},
	}
}

// WithID sets the message ID
func (b *MessageBuilder) WithID(id uint) *MessageBuilder {
	b.message.ID = id
	return b
}

// WithAuthor sets the author
func (b *MessageBuilder) WithAuthor(user models.User) *MessageBuilder {
	b.message.AuthorID = user.ID
	b.message.Author = user
	return b
}

// WithContent sets the content
func (b *MessageBuilder) WithContent(content string) *MessageBuilder {
	b.message.Content = content
	return b
}

// WithCreatedAt sets the creation timestamp
func (b *MessageBuilder) WithCreatedAt(t time.Time) *MessageBuilder {
	b.message.CreatedAt = t
	return b
}

// WithEditedAt sets the edit timestamp
func (b *MessageBuilder) WithEditedAt(t time.Time) *MessageBuilder {
	b.message.EditedAt = &t
	return b
}

// WithAttachment links an attachment
func (b *MessageBuilder) WithAttachment(attachment models.Attachment) *MessageBuilder {
	id := attachment.ID
	b.message.AttachmentID = &id
	b.message.Attachment = &attachment
	return b
}

// Build returns the constructed Message
func (b *MessageBuilder) Build() *models.Message {
	m := b.message
	return &m
}

// BuildValue returns the constructed Message as a value
func (b *MessageBuilder) BuildValue() models.Message {
	return b.message
}

// AttachmentBuilder creates test Attachment instances with fluent API
type AttachmentBuilder struct {
	attachment models.Attachment
}

// NewAttachmentBuilder creates a new AttachmentBuilder with sensible defaults
func NewAttachmentBuilder() *AttachmentBuilder {
	return &AttachmentBuilder{
		attachment: models.Attachment{
			ID:          1,
			OwnerID:     1,
			DisplayName: "photo.png",
			StoragePath: "4f2a9c0d.png",
			SizeBytes:   1024,
			MimeType:    "image/png",
			ContentHash: "4f2a9c0d",
			UploadedAt:  time.Now(),
		},
	}
}

// WithID sets the attachment ID
func (b *AttachmentBuilder) WithID(id uint) *AttachmentBuilder {
	b.attachment.ID = id
	return b
}

// WithOwnerID sets the owner
func (b *AttachmentBuilder) WithOwnerID(ownerID uint) *AttachmentBuilder {
	b.attachment.OwnerID = ownerID
	return b
}

// WithFile sets display name, mime type and storage path together
func (b *AttachmentBuilder) WithFile(displayName, mimeType, storagePath string) *AttachmentBuilder {
	b.attachment.DisplayName = displayName
	b.attachment.MimeType = mimeType
	b.attachment.StoragePath = storagePath
	return b
}

// WithSize sets the size in bytes
func (b *AttachmentBuilder) WithSize(size int64) *AttachmentBuilder {
	b.attachment.SizeBytes = size
	return b
}

// Build returns the constructed Attachment
func (b *AttachmentBuilder) Build() *models.Attachment {
	a := b.attachment
	return &a
}

// BuildValue returns the constructed Attachment as a value
func (b *AttachmentBuilder) BuildValue() models.Attachment {
	return b.attachment
}

// CreateMessages creates a slice of messages by one author, newest first
func CreateMessages(author models.User, count int) []models.Message {
	messages := make([]models.Message, count)
	now := time.Now()
	for i := 0; i < count; i++ {
		messages[i] = NewMessageBuilder().
			WithID(uint(count - i)).
			WithAuthor(author).
			WithContent(fmt.Sprintf("message %d", count-i)).
			WithCreatedAt(now.Add(-time.Duration(i) * time.Minute)).
			BuildValue()
	}
	return messages
}
