package attachment

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
	"github.com/welldanyogia/webrana-chat-backend/internal/storage"
	"github.com/welldanyogia/webrana-chat-backend/tests/fixtures"
	"gorm.io/gorm"
)

// ProcessorTestSuite exercises the processor against sqlite and a temp upload dir
type ProcessorTestSuite struct {
	suite.Suite
	db        *gorm.DB
	store     repository.Store
	files     storage.FileStorage
	uploadDir string
	processor *Processor
	owner     *models.User
}

func (s *ProcessorTestSuite) SetupTest() {
	s.db = fixtures.OpenSQLite(s.T())
	s.store = repository.NewStore(s.db)
	s.uploadDir = s.T().TempDir()

	files, err := storage.NewLocalStorage(s.uploadDir)
	require.NoError(s.T(), err)
	s.files = files
	s.processor = NewProcessor(files, s.store, nil)
	s.owner = fixtures.CreateUser(s.T(), s.db, "alice")
}

func TestProcessorTestSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func (s *ProcessorTestSuite) uploadedFiles() []string {
	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(s.T(), err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ==================== Validation Tests ====================

func (s *ProcessorTestSuite) TestStore_RejectsExecutable() {
	_, err := s.processor.Store(context.Background(), s.owner.ID, Upload{
		Filename:    "setup.exe",
		ContentType: "image/png",
		Data:        []byte("MZ\x90\x00"),
	})

	vErr := apperrors.GetValidationError(err)
	require.NotNil(s.T(), vErr)
	assert.Equal(s.T(), apperrors.CodeUnsupportedType, vErr.Code)
	assert.Empty(s.T(), s.uploadedFiles())
}

func (s *ProcessorTestSuite) TestStore_RejectsMissingExtension() {
	_, err := s.processor.Store(context.Background(), s.owner.ID, Upload{Filename: "README", Data: []byte("hi")})

	assert.Equal(s.T(), apperrors.CodeUnsupportedType, apperrors.GetErrorCode(err))
}

func (s *ProcessorTestSuite) TestStore_RejectsDeclaredTypeMismatch() {
	_, err := s.processor.Store(context.Background(), s.owner.ID, Upload{
		Filename:    "photo.png",
		ContentType: "application/pdf",
		Data:        fixtures.PNGBytes(64),
	})

	assert.Equal(s.T(), apperrors.CodeExtensionMismatch, apperrors.GetErrorCode(err))
}

func (s *ProcessorTestSuite) TestStore_RejectsSniffedMismatch() {
	_, err := s.processor.Store(context.Background(), s.owner.ID, Upload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Data:        fixtures.PNGBytes(64),
	})

	assert.Equal(s.T(), apperrors.CodeExtensionMismatch, apperrors.GetErrorCode(err))
	assert.Empty(s.T(), s.uploadedFiles())
}

func (s *ProcessorTestSuite) TestStore_RejectsOversizedImageWithLimit() {
	_, err := s.processor.Store(context.Background(), s.owner.ID, Upload{
		Filename:    "big.png",
		ContentType: "image/png",
		Data:        fixtures.PNGBytes(6 * mib),
	})

	vErr := apperrors.GetValidationError(err)
	require.NotNil(s.T(), vErr)
	assert.Equal(s.T(), apperrors.CodeFileTooLarge, vErr.Code)
	assert.Equal(s.T(), int64(5*mib), vErr.Limit)
	assert.Equal(s.T(), CategoryImage, vErr.Category)
	assert.Contains(s.T(), vErr.Message, "5 MiB")
	assert.Empty(s.T(), s.uploadedFiles())
}

func (s *ProcessorTestSuite) TestStore_DocumentLimitIsHigher() {
	att, err := s.processor.Store(context.Background(), s.owner.ID, Upload{
		Filename: "report.pdf",
		Data:     fixtures.PDFBytes(6 * mib),
	})

	require.NoError(s.T(), err)
	assert.Equal(s.T(), "application/pdf", att.MimeType)
}

// ==================== Storage Tests ====================

func (s *ProcessorTestSuite) TestStore_WritesContentAddressedFile() {
	data := fixtures.PNGBytes(128)

	att, err := s.processor.Store(context.Background(), s.owner.ID, Upload{
		Filename:    "../Holiday PHOTO.PNG",
		ContentType: "image/png; charset=binary",
		Data:        data,
	})

	require.NoError(s.T(), err)
	assert.NotZero(s.T(), att.ID)
	expectedPath, digest := StoragePath(data, ".png")
	assert.Equal(s.T(), expectedPath, att.StoragePath)
	assert.Equal(s.T(), digest, att.ContentHash)
	assert.Equal(s.T(), "Holiday PHOTO.PNG", att.DisplayName)
	assert.Equal(s.T(), "image/png", att.MimeType)
	assert.Equal(s.T(), int64(128), att.SizeBytes)

	onDisk, err := os.ReadFile(filepath.Join(s.uploadDir, att.StoragePath))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), data, onDisk)
}

func (s *ProcessorTestSuite) TestStore_DeduplicatesIdenticalBytes() {
	data := fixtures.PNGBytes(256)

	first, err := s.processor.Store(context.Background(), s.owner.ID, Upload{Filename: "a.png", Data: data})
	require.NoError(s.T(), err)
	second, err := s.processor.Store(context.Background(), s.owner.ID, Upload{Filename: "b.png", Data: data})
	require.NoError(s.T(), err)

	assert.NotEqual(s.T(), first.ID, second.ID)
	assert.Equal(s.T(), first.StoragePath, second.StoragePath)
	assert.Equal(s.T(), "a.png", first.DisplayName)
	assert.Equal(s.T(), "b.png", second.DisplayName)
	assert.Len(s.T(), s.uploadedFiles(), 1)
}

func (s *ProcessorTestSuite) TestPrepare_ReportsReuse() {
	data := fixtures.TextBytes("same words")

	first, err := s.processor.Prepare(s.owner.ID, Upload{Filename: "a.txt", Data: data})
	require.NoError(s.T(), err)
	second, err := s.processor.Prepare(s.owner.ID, Upload{Filename: "b.txt", Data: data})
	require.NoError(s.T(), err)

	assert.True(s.T(), first.Created)
	assert.False(s.T(), second.Created)
	assert.Zero(s.T(), first.Attachment.ID)
}

// ==================== Release Tests ====================

func (s *ProcessorTestSuite) TestRelease_KeepsSharedFileUntilLastReference() {
	data := fixtures.PNGBytes(256)
	first, err := s.processor.Store(context.Background(), s.owner.ID, Upload{Filename: "a.png", Data: data})
	require.NoError(s.T(), err)
	second, err := s.processor.Store(context.Background(), s.owner.ID, Upload{Filename: "b.png", Data: data})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.Attachments().Delete(context.Background(), first.ID))
	require.NoError(s.T(), s.processor.Release(context.Background(), first.StoragePath))
	assert.Len(s.T(), s.uploadedFiles(), 1)

	require.NoError(s.T(), s.store.Attachments().Delete(context.Background(), second.ID))
	require.NoError(s.T(), s.processor.Release(context.Background(), second.StoragePath))
	assert.Empty(s.T(), s.uploadedFiles())
}

func (s *ProcessorTestSuite) TestOpen_StreamsStoredBytes() {
	data := fixtures.TextBytes("hello file")
	att, err := s.processor.Store(context.Background(), s.owner.ID, Upload{Filename: "hello.txt", Data: data})
	require.NoError(s.T(), err)

	rc, err := s.processor.Open(att.StoragePath)
	require.NoError(s.T(), err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), data, got)
}

// ==================== Failure Tests ====================

type failingAttachments struct {
	repository.AttachmentRepository
}

func (failingAttachments) Create(context.Context, *models.Attachment) error {
	return errors.New("database is locked")
}

type failingStore struct {
	repository.Store
}

func (f failingStore) Attachments() repository.AttachmentRepository {
	return failingAttachments{AttachmentRepository: f.Store.Attachments()}
}

func (s *ProcessorTestSuite) TestStore_MetadataFailureRemovesNewFile() {
	processor := NewProcessor(s.files, failingStore{Store: s.store}, nil)

	_, err := processor.Store(context.Background(), s.owner.ID, Upload{Filename: "a.txt", Data: fixtures.TextBytes("lost")})

	assert.ErrorIs(s.T(), err, apperrors.ErrPersistence)
	assert.Nil(s.T(), apperrors.GetValidationError(err))
	assert.Empty(s.T(), s.uploadedFiles())
}

func (s *ProcessorTestSuite) TestStore_MetadataFailureKeepsExistingFile() {
	data := fixtures.TextBytes("kept")
	existing, err := s.processor.Store(context.Background(), s.owner.ID, Upload{Filename: "a.txt", Data: data})
	require.NoError(s.T(), err)

	processor := NewProcessor(s.files, failingStore{Store: s.store}, nil)
	_, err = processor.Store(context.Background(), s.owner.ID, Upload{Filename: "b.txt", Data: data})

	assert.ErrorIs(s.T(), err, apperrors.ErrPersistence)
	assert.Equal(s.T(), []string{existing.StoragePath}, s.uploadedFiles())
}

// ==================== Type Table Tests ====================

func TestFileType_Accepts(t *testing.T) {
	png, _ := Lookup(".PNG")
	pdf, _ := Lookup(".pdf")
	ogg, _ := Lookup(".ogg")

	assert.True(t, png.Accepts("image/jpeg"))
	assert.False(t, png.Accepts("text/plain"))
	assert.True(t, pdf.Accepts("application/pdf"))
	assert.False(t, pdf.Accepts("application/zip"))
	assert.True(t, ogg.Accepts("application/ogg"))
}

func TestLookup_CategoryLimits(t *testing.T) {
	tests := []struct {
		ext      string
		category string
		limit    int64
	}{
		{".jpeg", CategoryImage, 5 * mib},
		{".webm", CategoryVideo, 50 * mib},
		{".mp3", CategoryAudio, 10 * mib},
		{".txt", CategoryDocument, 20 * mib},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			ft, ok := Lookup(tt.ext)
			require.True(t, ok)
			assert.Equal(t, tt.category, ft.Category)
			assert.Equal(t, tt.limit, ft.Limit())
		})
	}

	_, ok := Lookup(".exe")
	assert.False(t, ok)
}
