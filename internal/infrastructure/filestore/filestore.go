// Package filestore stores uploaded documents on disk. Files are
// write-once; the only mutation is Delete, used to discard blobs when
// the operation that uploaded them fails.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KindTransactions is the subdirectory for contract documents.
const KindTransactions = "transacoes"

// File is the handle returned for a stored blob.
type File struct {
	Name     string
	MimeType string
	Path     string
	Size     int64
}

// Store writes blobs under a base directory, one subdirectory per kind.
type Store struct {
	baseDir string
}

// New creates the base directory and known subdirectories.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, KindTransactions), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save stores the blob under a unique name and returns its handle. The
// original name is preserved in the handle, not on disk.
func (s *Store) Save(kind, originalName, mimeType string, r io.Reader) (File, error) {
	ext := filepath.Ext(originalName)
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), strings.Split(uuid.NewString(), "-")[0], ext)
	path := filepath.Join(s.baseDir, kind, name)

	f, err := os.Create(path)
	if err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return File{}, fmt.Errorf("write file: %w", err)
	}
	return File{Name: originalName, MimeType: mimeType, Path: path, Size: size}, nil
}

// Delete removes a stored blob by the path in its handle.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
