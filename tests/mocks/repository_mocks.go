package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
)

// MockUserRepository implements repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID retrieves a user by its ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// GetByUsername retrieves a user by username
func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockMessageRepository implements repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Create creates a new message
func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// GetByID retrieves a message with author and attachment
func (m *MockMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// GetForUpdate retrieves a message and locks its row
func (m *MockMessageRepository) GetForUpdate(ctx context.Context, id uint) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// Update updates content, edit time and attachment link
func (m *MockMessageRepository) Update(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// Delete deletes a message by its ID
func (m *MockMessageRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ListRecent retrieves the newest messages
func (m *MockMessageRepository) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// MockAttachmentRepository implements repository.AttachmentRepository
type MockAttachmentRepository struct {
	mock.Mock
}

// Create creates a new attachment row
func (m *MockAttachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	args := m.Called(ctx, attachment)
	return args.Error(0)
}

// GetByID retrieves an attachment by its ID
func (m *MockAttachmentRepository) GetByID(ctx context.Context, id uint) (*models.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attachment), args.Error(1)
}

// GetLinkedByID retrieves an attachment referenced by a live message
func (m *MockAttachmentRepository) GetLinkedByID(ctx context.Context, id uint) (*models.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attachment), args.Error(1)
}

// Delete deletes an attachment row
func (m *MockAttachmentRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// CountByStoragePath counts rows sharing a stored file
func (m *MockAttachmentRepository) CountByStoragePath(ctx context.Context, storagePath string) (int64, error) {
	args := m.Called(ctx, storagePath)
	return args.Get(0).(int64), args.Error(1)
}

// ListUnreferenced lists rows no message points at
func (m *MockAttachmentRepository) ListUnreferenced(ctx context.Context, uploadedBefore time.Time) ([]models.Attachment, error) {
	args := m.Called(ctx, uploadedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attachment), args.Error(1)
}

// ListStoragePaths lists every distinct stored file referenced by a row
func (m *MockAttachmentRepository) ListStoragePaths(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockStore implements repository.Store over the repository mocks.
// Transaction runs fn against the same mock unless an error is configured.
type MockStore struct {
	mock.Mock
	UserRepo       *MockUserRepository
	MessageRepo    *MockMessageRepository
	AttachmentRepo *MockAttachmentRepository
}

// NewMockStore creates a MockStore with fresh repository mocks
func NewMockStore() *MockStore {
	return &MockStore{
		UserRepo:       new(MockUserRepository),
		MessageRepo:    new(MockMessageRepository),
		AttachmentRepo: new(MockAttachmentRepository),
	}
}

// Users returns the user repository mock
func (m *MockStore) Users() repository.UserRepository {
	return m.UserRepo
}

// Messages returns the message repository mock
func (m *MockStore) Messages() repository.MessageRepository {
	return m.MessageRepo
}

// Attachments returns the attachment repository mock
func (m *MockStore) Attachments() repository.AttachmentRepository {
	return m.AttachmentRepo
}

// Transaction runs fn with the mock itself as the transactional store
func (m *MockStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

// Ping checks the mock connection
func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
