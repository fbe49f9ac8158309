package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// FileStore abstracts the filesystem operations the pipeline performs, so
// tests can verify that rejected uploads touch nothing.
type FileStore interface {
	// Save writes r to path, creating missing parent directories.
	Save(path string, r io.Reader) error
	// Remove deletes path. Removing an absent file is not an error.
	Remove(path string) error
	// DetectMime sniffs the content type of the file at path.
	DetectMime(path string) (string, error)
}

// osFileStore implements FileStore on the local filesystem.
type osFileStore struct{}

// NewOSFileStore creates a FileStore backed by the local filesystem.
func NewOSFileStore() FileStore {
	return osFileStore{}
}

func (osFileStore) Save(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush file %s: %w", path, err)
	}
	return nil
}

func (osFileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file %s: %w", path, err)
	}
	return nil
}

func (osFileStore) DetectMime(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect mime type of %s: %w", path, err)
	}
	return mtype.String(), nil
}
