package attachment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-chat-backend/internal/attachment"
	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/tests/mocks"
)

func textUpload(name, text string) attachment.Upload {
	return attachment.Upload{Filename: name, Data: []byte(text)}
}

func TestStore_SaveFailureRecordsNothing(t *testing.T) {
	files := new(mocks.MockFileStorage)
	store := mocks.NewMockStore()
	upload := textUpload("notes.txt", "hello")
	path, _ := attachment.StoragePath(upload.Data, ".txt")
	files.On("Save", path, mock.Anything).Return(false, errors.New("no space left on device"))

	_, err := attachment.NewProcessor(files, store, nil).Store(context.Background(), 1, upload)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.Nil(t, apperrors.GetValidationError(err))
	store.AttachmentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	files.AssertExpectations(t)
}

func TestStore_RestoresFileReleasedBeforeCommit(t *testing.T) {
	files := new(mocks.MockFileStorage)
	store := mocks.NewMockStore()
	upload := textUpload("notes.txt", "shared")
	path, _ := attachment.StoragePath(upload.Data, ".txt")

	files.On("Save", path, mock.Anything).Return(false, nil).Once()
	store.AttachmentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	files.On("Exists", path).Return(false, nil)
	files.On("Save", path, mock.Anything).Return(true, nil).Once()

	att, err := attachment.NewProcessor(files, store, nil).Store(context.Background(), 1, upload)

	require.NoError(t, err)
	assert.Equal(t, path, att.StoragePath)
	files.AssertNumberOfCalls(t, "Save", 2)
	files.AssertExpectations(t)
}

func TestConfirm_PresentFileIsLeftAlone(t *testing.T) {
	files := new(mocks.MockFileStorage)
	upload := textUpload("notes.txt", "present")
	path, _ := attachment.StoragePath(upload.Data, ".txt")
	files.On("Save", path, mock.Anything).Return(true, nil).Once()
	files.On("Exists", path).Return(true, nil)

	processor := attachment.NewProcessor(files, mocks.NewMockStore(), nil)
	prepared, err := processor.Prepare(1, upload)
	require.NoError(t, err)

	require.NoError(t, processor.Confirm(prepared))
	assert.NoError(t, processor.Confirm(nil))
	files.AssertNumberOfCalls(t, "Save", 1)
}

func TestRelease_ReferencedFileIsKept(t *testing.T) {
	files := new(mocks.MockFileStorage)
	store := mocks.NewMockStore()
	store.AttachmentRepo.On("CountByStoragePath", mock.Anything, "abc.png").Return(int64(1), nil)

	err := attachment.NewProcessor(files, store, nil).Release(context.Background(), "abc.png")

	require.NoError(t, err)
	files.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestRelease_LastReferenceDeletesFile(t *testing.T) {
	files := new(mocks.MockFileStorage)
	store := mocks.NewMockStore()
	store.AttachmentRepo.On("CountByStoragePath", mock.Anything, "abc.png").Return(int64(0), nil)
	files.On("Delete", "abc.png").Return(nil)

	err := attachment.NewProcessor(files, store, nil).Release(context.Background(), "abc.png")

	require.NoError(t, err)
	files.AssertExpectations(t)
}

func TestRelease_CountFailureKeepsFile(t *testing.T) {
	files := new(mocks.MockFileStorage)
	store := mocks.NewMockStore()
	store.AttachmentRepo.On("CountByStoragePath", mock.Anything, "abc.png").Return(int64(0), errors.New("database is locked"))

	err := attachment.NewProcessor(files, store, nil).Release(context.Background(), "abc.png")

	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	files.AssertNotCalled(t, "Delete", mock.Anything)
}
