package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Security errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
)

// tempPrefix marks in-flight writes; they are never visible under a final name
const tempPrefix = ".upload-"

// StoredFile describes a file at rest in the upload directory
type StoredFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FileStorage defines the interface for content-addressed file storage.
// Names are relative to the storage root.
type FileStorage interface {
	// Save writes content under name unless a file with that name already
	// exists, in which case it is reused, its modification time is
	// refreshed, and created is false.
	Save(name string, content io.Reader) (created bool, err error)
	Exists(name string) (bool, error)
	Get(filePath string) (io.ReadCloser, error)
	Delete(filePath string) error
	List() ([]StoredFile, error)
}

// localStorage implements FileStorage using local filesystem
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) (FileStorage, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &localStorage{basePath: basePath}, nil
}

// validatePath ensures path is within basePath (prevents traversal)
func (s *localStorage) validatePath(filePath string) (string, error) {
	// Clean the path
	cleanPath := filepath.Clean(filePath)

	// Prevent absolute paths
	if filepath.IsAbs(cleanPath) || strings.Contains(cleanPath, ":") {
		return "", ErrPathTraversal
	}

	// Prevent path traversal
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	// Build full path
	fullPath := filepath.Join(s.basePath, cleanPath)

	// Get absolute paths for comparison
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	// Security check: ensure file is within allowed directory
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// Save stores content under name. The bytes go to a temp file in the same
// directory first and are renamed into place only once fully written and
// synced, so a partial file is never observable under its final name.
func (s *localStorage) Save(name string, content io.Reader) (bool, error) {
	fullPath, err := s.validatePath(name)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err == nil {
		// Reused files count as fresh for the orphan grace period
		now := time.Now()
		if err := os.Chtimes(fullPath, now, now); err != nil {
			return false, fmt.Errorf("failed to touch file: %w", err)
		}
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return false, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	if err := writeAtomic(fullPath, content); err != nil {
		return false, err
	}
	return true, nil
}

func writeAtomic(fullPath string, content io.Reader) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	// Release the handle and drop the partial file on every failure path
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, content); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Exists reports whether a file is stored under name
func (s *localStorage) Exists(name string) (bool, error) {
	fullPath, err := s.validatePath(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// Get retrieves a file by its path
func (s *localStorage) Get(filePath string) (io.ReadCloser, error) {
	// Validate path to prevent traversal
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes a file by its path
func (s *localStorage) Delete(filePath string) error {
	// Validate path to prevent traversal
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			// File already doesn't exist, not an error
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// List walks the storage root and returns every regular file, including
// abandoned temp files, relative to the root
func (s *localStorage) List() ([]StoredFile, error) {
	var files []StoredFile
	err := filepath.WalkDir(s.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		files = append(files, StoredFile{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// IsTempFile reports whether path is an in-flight or abandoned upload
func IsTempFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), tempPrefix)
}
