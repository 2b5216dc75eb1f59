package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/welldanyogia/webrana-chat-backend/internal/attachment"
	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
	"github.com/welldanyogia/webrana-chat-backend/internal/storage"
	"github.com/welldanyogia/webrana-chat-backend/internal/validator"
	"github.com/welldanyogia/webrana-chat-backend/internal/websocket"
)

// Message service errors
var (
	ErrMessageNotFound    = apperrors.NewAppError(apperrors.ErrMessageNotFound, "message not found", apperrors.CodeNotFound)
	ErrAttachmentNotFound = apperrors.NewAppError(apperrors.ErrAttachmentNotFound, "attachment not found", apperrors.CodeNotFound)
	ErrNotMessageAuthor   = apperrors.NewAppError(apperrors.ErrForbidden, "only the author can modify this message", apperrors.CodeForbidden)
)

// Publisher pushes events to live sessions
type Publisher interface {
	Publish(event websocket.Event) error
}

// MessageService coordinates message persistence, attachment storage and
// broadcast. Broadcast happens only after the store has committed and its
// failure never undoes the write.
type MessageService interface {
	Send(ctx context.Context, authorID uint, content string, upload *attachment.Upload) (*models.Message, error)
	Edit(ctx context.Context, messageID, userID uint, content string, upload *attachment.Upload) (*models.Message, error)
	Delete(ctx context.Context, messageID, userID uint) error
	ListRecent(ctx context.Context, limit int) ([]models.Message, error)
	OpenAttachment(ctx context.Context, id uint) (*models.Attachment, io.ReadCloser, error)
}

// MessageServiceConfig holds tunables for the message service
type MessageServiceConfig struct {
	// DefaultLimit applies when ListRecent is called without a positive limit
	DefaultLimit int
}

type messageService struct {
	store       repository.Store
	attachments *attachment.Processor
	publisher   Publisher
	config      MessageServiceConfig
	logger      *slog.Logger
}

// NewMessageService creates a new MessageService. publisher may be nil.
func NewMessageService(
	store repository.Store,
	attachments *attachment.Processor,
	publisher Publisher,
	config MessageServiceConfig,
	log *slog.Logger,
) MessageService {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = validator.DefaultLimit
	}
	return &messageService{
		store:       store,
		attachments: attachments,
		publisher:   publisher,
		config:      config,
		logger:      logger.OrDiscard(log),
	}
}

// Send stores the message and its optional attachment in one transaction
// and broadcasts it once committed
func (s *messageService) Send(ctx context.Context, authorID uint, content string, upload *attachment.Upload) (*models.Message, error) {
	content, err := prepareContent(content, upload != nil)
	if err != nil {
		return nil, err
	}

	prepared, err := s.prepare(authorID, upload)
	if err != nil {
		return nil, err
	}

	var message *models.Message
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		msg := &models.Message{AuthorID: authorID, Content: content}
		if prepared != nil {
			if err := tx.Attachments().Create(ctx, prepared.Attachment); err != nil {
				return err
			}
			msg.AttachmentID = &prepared.Attachment.ID
		}
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}

		stored, err := tx.Messages().GetByID(ctx, msg.ID)
		if err != nil {
			return err
		}
		message = stored
		return nil
	})
	if err != nil {
		s.attachments.Discard(ctx, prepared)
		return nil, s.storeError("send message", err)
	}
	s.confirm(prepared)

	s.logger.Info("message sent",
		slog.Uint64("message_id", uint64(message.ID)),
		slog.Uint64("author_id", uint64(authorID)),
		slog.Bool("has_attachment", message.HasAttachment()))

	s.publish(websocket.NewMessageEvent(message))
	return message, nil
}

// Edit replaces the content and, when upload is set, the attachment of a
// message owned by userID. The old attachment row is removed in the same
// transaction that links the new one; its file is released after commit.
func (s *messageService) Edit(ctx context.Context, messageID, userID uint, content string, upload *attachment.Upload) (*models.Message, error) {
	content = validator.SanitizeContent(content)
	if utf8.RuneCountInString(content) > validator.MaxContentLength {
		return nil, contentTooLong()
	}

	prepared, err := s.prepare(userID, upload)
	if err != nil {
		return nil, err
	}

	var (
		message     *models.Message
		releasePath string
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		msg, err := tx.Messages().GetForUpdate(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.AuthorID != userID {
			return ErrNotMessageAuthor
		}

		var old *models.Attachment
		if prepared != nil {
			if msg.AttachmentID != nil {
				if old, err = tx.Attachments().GetByID(ctx, *msg.AttachmentID); err != nil {
					return err
				}
			}
			if err := tx.Attachments().Create(ctx, prepared.Attachment); err != nil {
				return err
			}
			msg.AttachmentID = &prepared.Attachment.ID
		}

		if content == "" && msg.AttachmentID == nil {
			return apperrors.NewValidationError("content", "content is required")
		}

		now := time.Now()
		msg.Content = html.EscapeString(content)
		msg.EditedAt = &now
		if err := tx.Messages().Update(ctx, msg); err != nil {
			return err
		}

		if old != nil {
			if err := tx.Attachments().Delete(ctx, old.ID); err != nil {
				return err
			}
			releasePath = old.StoragePath
		}

		message, err = tx.Messages().GetByID(ctx, msg.ID)
		return err
	})
	if err != nil {
		s.attachments.Discard(ctx, prepared)
		return nil, s.storeError("edit message", err)
	}
	s.confirm(prepared)

	s.release(ctx, releasePath)

	s.logger.Info("message edited",
		slog.Uint64("message_id", uint64(message.ID)),
		slog.Bool("attachment_replaced", prepared != nil))

	s.publish(websocket.NewMessageUpdatedEvent(message))
	return message, nil
}

// Delete removes a message owned by userID, then its attachment row, and
// releases the attachment file after commit
func (s *messageService) Delete(ctx context.Context, messageID, userID uint) error {
	var releasePath string
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		msg, err := tx.Messages().GetForUpdate(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.AuthorID != userID {
			return ErrNotMessageAuthor
		}

		var att *models.Attachment
		if msg.AttachmentID != nil {
			if att, err = tx.Attachments().GetByID(ctx, *msg.AttachmentID); err != nil {
				return err
			}
		}

		if err := tx.Messages().Delete(ctx, msg.ID); err != nil {
			return err
		}
		if att != nil {
			if err := tx.Attachments().Delete(ctx, att.ID); err != nil {
				return err
			}
			releasePath = att.StoragePath
		}
		return nil
	})
	if err != nil {
		return s.storeError("delete message", err)
	}

	s.release(ctx, releasePath)

	s.logger.Info("message deleted", slog.Uint64("message_id", uint64(messageID)))

	s.publish(websocket.NewMessageDeletedEvent(messageID))
	return nil
}

// ListRecent returns up to limit messages, newest first
func (s *messageService) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	limit = validator.ValidateLimit(limit)

	messages, err := s.store.Messages().ListRecent(ctx, limit)
	if err != nil {
		return nil, s.storeError("list messages", err)
	}
	return messages, nil
}

// OpenAttachment streams an attachment that is linked to a live message
func (s *messageService) OpenAttachment(ctx context.Context, id uint) (*models.Attachment, io.ReadCloser, error) {
	att, err := s.store.Attachments().GetLinkedByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, s.storeError("load attachment", err)
	}

	rc, err := s.attachments.Open(att.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			s.logger.Warn("attachment file missing",
				slog.Uint64("attachment_id", uint64(att.ID)),
				slog.String("storage_path", att.StoragePath))
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, s.storeError("open attachment", err)
	}
	return att, rc, nil
}

func (s *messageService) prepare(ownerID uint, upload *attachment.Upload) (*attachment.Prepared, error) {
	if upload == nil {
		return nil, nil
	}
	prepared, err := s.attachments.Prepare(ownerID, *upload)
	if err != nil {
		if apperrors.IsPersistence(err) {
			s.logger.Error("attachment write failed", slog.Any("error", err))
		}
		return nil, err
	}
	return prepared, nil
}

// confirm makes sure a committed attachment still has its file
func (s *messageService) confirm(prepared *attachment.Prepared) {
	if err := s.attachments.Confirm(prepared); err != nil {
		s.logger.Error("attachment file missing after commit",
			slog.String("storage_path", prepared.Attachment.StoragePath),
			slog.Any("error", err))
	}
}

// release drops a file no longer referenced. Failures leave an orphan for
// the sweeper and are not reported to the caller.
func (s *messageService) release(ctx context.Context, storagePath string) {
	if storagePath == "" {
		return
	}
	if err := s.attachments.Release(ctx, storagePath); err != nil {
		s.logger.Warn("failed to release attachment file",
			slog.String("storage_path", storagePath),
			slog.Any("error", err))
	}
}

func (s *messageService) publish(event websocket.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Warn("broadcast failed",
			slog.String("type", string(event.Kind())),
			slog.Any("error", err))
	}
}

// storeError passes caller-correctable errors through and turns everything
// else into a PersistenceError, logging the cause
func (s *messageService) storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrMessageNotFound
	case apperrors.IsNotFound(err), apperrors.IsForbidden(err), apperrors.IsInvalidInput(err):
		return err
	}
	s.logger.Error("store operation failed", slog.String("op", op), slog.Any("error", err))
	return apperrors.NewPersistenceError(op, err)
}

// prepareContent sanitizes and escapes chat text. Empty text is only
// accepted alongside an attachment.
func prepareContent(content string, hasAttachment bool) (string, error) {
	content = validator.SanitizeContent(content)
	if content == "" && !hasAttachment {
		return "", apperrors.NewValidationError("content", "content is required")
	}
	if utf8.RuneCountInString(content) > validator.MaxContentLength {
		return "", contentTooLong()
	}
	return html.EscapeString(content), nil
}

func contentTooLong() error {
	return apperrors.NewValidationError("content", fmt.Sprintf("content must be at most %d characters", validator.MaxContentLength))
}
