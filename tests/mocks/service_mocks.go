package mocks

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-chat-backend/internal/attachment"
	"github.com/welldanyogia/webrana-chat-backend/internal/auth"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"github.com/welldanyogia/webrana-chat-backend/internal/websocket"
)

// MockMessageService implements services.MessageService
type MockMessageService struct {
	mock.Mock
}

// Send stores and broadcasts a new message
func (m *MockMessageService) Send(ctx context.Context, authorID uint, content string, upload *attachment.Upload) (*models.Message, error) {
	args := m.Called(ctx, authorID, content, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// Edit replaces a message's content and optionally its attachment
func (m *MockMessageService) Edit(ctx context.Context, messageID, userID uint, content string, upload *attachment.Upload) (*models.Message, error) {
	args := m.Called(ctx, messageID, userID, content, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// Delete removes a message owned by userID
func (m *MockMessageService) Delete(ctx context.Context, messageID, userID uint) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

// ListRecent returns the newest messages
func (m *MockMessageService) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// OpenAttachment returns attachment metadata and its content
func (m *MockMessageService) OpenAttachment(ctx context.Context, id uint) (*models.Attachment, io.ReadCloser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Attachment), args.Get(1).(io.ReadCloser), args.Error(2)
}

// MockPublisher records published events
type MockPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
	Err    error
}

// Publish records event and returns Err
func (m *MockPublisher) Publish(event websocket.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.Err
}

// Events returns every recorded event in publish order
func (m *MockPublisher) Events() []websocket.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]websocket.Event(nil), m.events...)
}

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

// Identify resolves the identity of r
func (m *MockAuthenticator) Identify(r *http.Request) (auth.Identity, error) {
	args := m.Called(r)
	return args.Get(0).(auth.Identity), args.Error(1)
}
