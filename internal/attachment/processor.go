// Package attachment validates uploaded files and stores them under
// content-addressed names.
package attachment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
	"github.com/welldanyogia/webrana-chat-backend/internal/storage"
	"github.com/welldanyogia/webrana-chat-backend/internal/validator"
)

// Upload is a file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Prepared is a validated file that is on disk but not yet recorded.
// Created is false when the bytes were already stored by an earlier upload.
type Prepared struct {
	Attachment *models.Attachment
	Created    bool

	data []byte
}

const pathLockStripes = 64

// Processor validates uploads, writes them to storage and releases files
// once no metadata row references them
type Processor struct {
	files  storage.FileStorage
	store  repository.Store
	logger *slog.Logger

	// Release and Confirm on the same path never interleave
	pathLocks [pathLockStripes]sync.Mutex
}

// NewProcessor creates a new Processor
func NewProcessor(files storage.FileStorage, store repository.Store, log *slog.Logger) *Processor {
	return &Processor{
		files:  files,
		store:  store,
		logger: logger.OrDiscard(log),
	}
}

// Validate runs the allow-list, consistency and size checks in that order
// and returns the matched file type
func (p *Processor) Validate(filename, declaredType string, data []byte) (FileType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ft, ok := allowedTypes[ext]
	if !ok {
		return FileType{}, apperrors.NewUnsupportedTypeError(filename, ext)
	}

	if err := checkConsistency(ext, ft, declaredType, data); err != nil {
		return FileType{}, err
	}

	if size := int64(len(data)); size > ft.Limit() {
		return FileType{}, apperrors.NewFileTooLargeError(ft.Category, size, ft.Limit())
	}

	return ft, nil
}

// checkConsistency rejects uploads whose declared or sniffed type contradicts the extension
func checkConsistency(ext string, ft FileType, declaredType string, data []byte) error {
	if declared := baseType(declaredType); declared != "" && declared != "application/octet-stream" {
		if !ft.Accepts(declared) {
			return apperrors.NewExtensionMismatchError(ext, declared)
		}
	}

	detected := mimetype.Detect(data)
	for _, exe := range executableTypes {
		if detected.Is(exe) {
			return apperrors.NewExtensionMismatchError(ext, detected.String())
		}
	}

	// Only content recognised as another allow-listed type is a contradiction;
	// unknown or generic content is left to the extension.
	sniffed := baseType(detected.String())
	if known, ok := knownTypes[sniffed]; ok && known.Group != ft.Group && !ft.Accepts(sniffed) {
		return apperrors.NewExtensionMismatchError(ext, sniffed)
	}
	return nil
}

func baseType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// StoragePath derives the content-addressed name for data
func StoragePath(data []byte, ext string) (path, digest string) {
	sum := sha256.Sum256(data)
	digest = hex.EncodeToString(sum[:])
	return digest + strings.ToLower(ext), digest
}

// Prepare validates the upload and writes its bytes. Identical content is
// written once and reused. The returned attachment has no ID yet.
func (p *Processor) Prepare(ownerID uint, upload Upload) (*Prepared, error) {
	ft, err := p.Validate(upload.Filename, upload.ContentType, upload.Data)
	if err != nil {
		return nil, err
	}

	path, digest := StoragePath(upload.Data, filepath.Ext(upload.Filename))
	created, err := p.files.Save(path, bytes.NewReader(upload.Data))
	if err != nil {
		return nil, apperrors.NewPersistenceError("write attachment file", err)
	}

	p.logger.Debug("attachment file prepared",
		slog.String("storage_path", path),
		slog.Int("size", len(upload.Data)),
		slog.Bool("deduplicated", !created),
	)

	return &Prepared{
		Attachment: &models.Attachment{
			OwnerID:     ownerID,
			DisplayName: validator.SanitizeFilename(filepath.Base(upload.Filename)),
			StoragePath: path,
			SizeBytes:   int64(len(upload.Data)),
			MimeType:    ft.MIME,
			ContentHash: digest,
		},
		Created: created,
		data:    upload.Data,
	}, nil
}

// Confirm runs after the metadata row has committed and rewrites the file if
// a concurrent Release removed it between Prepare and the commit. Once the
// row is visible no later Release can remove the file.
func (p *Processor) Confirm(prepared *Prepared) error {
	if prepared == nil {
		return nil
	}
	path := prepared.Attachment.StoragePath

	mu := p.pathLock(path)
	mu.Lock()
	defer mu.Unlock()

	ok, err := p.files.Exists(path)
	if err != nil {
		return apperrors.NewPersistenceError("check attachment file", err)
	}
	if ok {
		return nil
	}
	if _, err := p.files.Save(path, bytes.NewReader(prepared.data)); err != nil {
		return apperrors.NewPersistenceError("restore attachment file", err)
	}
	p.logger.Warn("attachment file restored after concurrent release",
		slog.String("storage_path", path))
	return nil
}

func (p *Processor) pathLock(path string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(path))
	return &p.pathLocks[h.Sum32()%pathLockStripes]
}

// Store prepares the upload and records its metadata. If recording fails a
// newly written file is removed again, so either both exist or neither does.
func (p *Processor) Store(ctx context.Context, ownerID uint, upload Upload) (*models.Attachment, error) {
	prepared, err := p.Prepare(ownerID, upload)
	if err != nil {
		return nil, err
	}

	if err := p.store.Attachments().Create(ctx, prepared.Attachment); err != nil {
		p.Discard(ctx, prepared)
		return nil, apperrors.NewPersistenceError("record attachment", err)
	}
	if err := p.Confirm(prepared); err != nil {
		return nil, err
	}
	return prepared.Attachment, nil
}

// Discard undoes Prepare after the metadata could not be recorded. Files that
// were already present, or that another row now references, are kept.
func (p *Processor) Discard(ctx context.Context, prepared *Prepared) {
	if prepared == nil || !prepared.Created {
		return
	}
	if err := p.Release(ctx, prepared.Attachment.StoragePath); err != nil {
		p.logger.Warn("failed to discard attachment file",
			slog.String("storage_path", prepared.Attachment.StoragePath),
			slog.String("error", err.Error()),
		)
	}
}

// Release removes the file at storagePath when no attachment row references
// it any more. It must run after the transaction that deleted the row commits.
func (p *Processor) Release(ctx context.Context, storagePath string) error {
	mu := p.pathLock(storagePath)
	mu.Lock()
	defer mu.Unlock()

	count, err := p.store.Attachments().CountByStoragePath(ctx, storagePath)
	if err != nil {
		return apperrors.NewPersistenceError("count attachment references", err)
	}
	if count > 0 {
		return nil
	}
	if err := p.files.Delete(storagePath); err != nil {
		return err
	}
	p.logger.Debug("attachment file released", slog.String("storage_path", storagePath))
	return nil
}

// Open streams a stored file
func (p *Processor) Open(storagePath string) (io.ReadCloser, error) {
	return p.files.Get(storagePath)
}
