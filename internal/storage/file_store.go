package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidKey      = errors.New("invalid storage key")
	ErrInvalidFilename = errors.New("invalid export filename")
)

var exportFilenamePattern = regexp.MustCompile(`^export_[A-Za-z0-9_.-]+\.xlsx$`)

// FileStore keeps uploaded PDFs and generated spreadsheets on the
// local filesystem, under separate subdirectories of the data dir.
type FileStore struct {
	pdfDir    string
	exportDir string
}

func NewFileStore(dataDir string) (*FileStore, error) {
	s := &FileStore{
		pdfDir:    filepath.Join(dataDir, "pdfs"),
		exportDir: filepath.Join(dataDir, "exports"),
	}

	for _, dir := range []string{s.pdfDir, s.exportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
		}
	}

	return s, nil
}

// SavePDF stores PDF bytes and returns the generated storage key
func (s *FileStore) SavePDF(originalFilename string, data []byte) (string, error) {
	key := uuid.New().String() + "_" + sanitizeFilename(originalFilename)
	if err := os.WriteFile(filepath.Join(s.pdfDir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store pdf: %w", err)
	}
	return key, nil
}

// ReadPDF loads a stored PDF by its storage key
func (s *FileStore) ReadPDF(key string) ([]byte, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	return os.ReadFile(filepath.Join(s.pdfDir, key))
}

// DeletePDF removes a stored PDF. Missing files are not an error.
func (s *FileStore) DeletePDF(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(s.pdfDir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ExportPath returns the filesystem path a new export file should be
// written to
func (s *FileStore) ExportPath(filename string) (string, error) {
	if !exportFilenamePattern.MatchString(filename) {
		return "", ErrInvalidFilename
	}
	return filepath.Join(s.exportDir, filename), nil
}

// OpenExport resolves a previously generated export for download. The
// filename must match the generated naming scheme so arbitrary paths
// cannot be read.
func (s *FileStore) OpenExport(filename string) (string, error) {
	if !exportFilenamePattern.MatchString(filename) {
		return "", ErrInvalidFilename
	}
	path := filepath.Join(s.exportDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && key != "." && key != ".."
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "document.pdf"
	}
	return b.String()
}
