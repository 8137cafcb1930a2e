// Package storage keeps uploaded copy files on local disk, one directory per exam.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when a file exceeds the size limit given to Save.
var ErrTooLarge = errors.New("file exceeds upload size limit")

// SavedFile describes a file written by Save.
type SavedFile struct {
	Path     string // relative to the storage root
	Size     int64
	Checksum string // SHA256 hex digest
}

// Local stores files under a root directory.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", abs, err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute storage root.
func (l *Local) Root() string {
	return l.root
}

// Save writes r to <exam>/<copy><ext>. maxBytes <= 0 disables the size check.
// A partially written file is removed on error.
func (l *Local) Save(examID, copyID uuid.UUID, filename string, r io.Reader, maxBytes int64) (*SavedFile, error) {
	rel := filepath.Join(examID.String(), copyID.String()+safeExt(filename))
	full := filepath.Join(l.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create exam dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	hash := sha256.New()
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	size, err := io.Copy(io.MultiWriter(f, hash), src)
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(full)
		return nil, fmt.Errorf("failed to write file: %w", err)
	case closeErr != nil:
		_ = os.Remove(full)
		return nil, fmt.Errorf("failed to write file: %w", closeErr)
	case maxBytes > 0 && size > maxBytes:
		_ = os.Remove(full)
		return nil, ErrTooLarge
	}

	return &SavedFile{
		Path:     filepath.ToSlash(rel),
		Size:     size,
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// Read returns the content of a stored file.
func (l *Local) Read(path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Open opens a stored file for streaming.
func (l *Local) Open(path string) (*os.File, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Delete removes a stored file. Missing files are ignored.
func (l *Local) Delete(path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// DeleteExam removes every file of an exam.
func (l *Local) DeleteExam(examID uuid.UUID) error {
	if err := os.RemoveAll(filepath.Join(l.root, examID.String())); err != nil {
		return fmt.Errorf("failed to delete exam files: %w", err)
	}
	return nil
}

// resolve maps a stored relative path to an absolute one inside the root.
func (l *Local) resolve(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return "", fmt.Errorf("invalid stored path %q", path)
	}
	full := filepath.Join(l.root, filepath.FromSlash(path))
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("stored path %q escapes upload dir", path)
	}
	return full, nil
}

// safeExt keeps a short alphanumeric extension from the client filename.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
