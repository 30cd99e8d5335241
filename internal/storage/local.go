// Package storage keeps user uploaded images on the local disk.
package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dom/anivers/internal/domain"
	"github.com/google/uuid"
)

// PublicPrefix is the URL path the upload directory is served under.
const PublicPrefix = "/uploads"

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// LocalStore writes images under dir with random file names.
type LocalStore struct {
	dir     string
	maxSize int64
}

func NewLocalStore(dir string, maxSize int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, maxSize: maxSize}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

// SaveImage stores the image read from r in the kind subdirectory ("avatars",
// "covers") and returns its public path.
func (s *LocalStore) SaveImage(kind string, r io.Reader) (string, error) {
	br := bufio.NewReader(io.LimitReader(r, s.maxSize+1))
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return "", domain.Validation("empty upload", map[string]string{"file": "is required"})
	}

	ext, ok := imageExtensions[http.DetectContentType(head)]
	if !ok {
		return "", domain.Validation("unsupported image type", map[string]string{"file": "must be a jpeg, png, gif or webp image"})
	}

	sub := filepath.Join(s.dir, kind)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("create %s dir: %w", kind, err)
	}

	name := uuid.NewString() + ext
	full := filepath.Join(sub, name)
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	n, err := io.Copy(f, br)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxSize {
		err = domain.Validation("upload too large", map[string]string{"file": fmt.Sprintf("must be at most %d bytes", s.maxSize)})
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}

	return path.Join(PublicPrefix, kind, name), nil
}

// Remove deletes a file previously returned by SaveImage. Paths outside the
// upload directory are ignored.
func (s *LocalStore) Remove(publicPath string) error {
	rel, ok := strings.CutPrefix(publicPath, PublicPrefix+"/")
	if !ok || rel == "" {
		return nil
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
