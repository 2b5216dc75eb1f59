package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle. Inside
// Transaction every repository returned by tx runs on the same transaction.
type Store interface {
	Users() UserRepository
	Messages() MessageRepository
	Attachments() AttachmentRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// gormStore implements Store using GORM
type gormStore struct {
	db          *gorm.DB
	users       UserRepository
	messages    MessageRepository
	attachments AttachmentRepository
}

// NewStore creates a new Store instance
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:          db,
		users:       NewUserRepository(db),
		messages:    NewMessageRepository(db),
		attachments: NewAttachmentRepository(db),
	}
}

func (s *gormStore) Users() UserRepository {
	return s.users
}

func (s *gormStore) Messages() MessageRepository {
	return s.messages
}

func (s *gormStore) Attachments() AttachmentRepository {
	return s.attachments
}

// Transaction runs fn in a database transaction. A non-nil error from fn
// rolls the transaction back and is returned unchanged.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Ping checks the underlying connection
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
