package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyFile   = errors.New("the submitted file is empty")
	ErrNotImage    = errors.New("upload a valid image")
	ErrInvalidPath = errors.New("invalid storage path")
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store persists uploaded files and hands back a durable reference.
type Store interface {
	Save(ctx context.Context, dir string, upload Upload) (string, error)
	Remove(ctx context.Context, ref string) error
	URL(ref string) string
}

// Upload is a file received from a client, independent of the transport.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// FromFileHeader adapts a multipart file part.
func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FromBytes wraps in-memory content, used by the seeder and tests.
func FromBytes(filename string, data []byte) Upload {
	return Upload{
		Filename: filename,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ValidateImage rejects empty files and content no registered decoder accepts.
func ValidateImage(upload Upload) error {
	if upload.Size <= 0 || upload.Open == nil {
		return ErrEmptyFile
	}

	rc, err := upload.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	if _, _, err := image.DecodeConfig(rc); err != nil {
		return ErrNotImage
	}
	return nil
}

// Local stores files below a root directory and serves them under urlPath.
type Local struct {
	root    string
	urlPath string
}

// NewLocal creates a disk-backed store.
func NewLocal(root, urlPath string) *Local {
	urlPath = "/" + strings.Trim(strings.TrimSpace(urlPath), "/")
	if urlPath == "/" {
		urlPath = ""
	}
	return &Local{root: root, urlPath: urlPath}
}

// Save writes the upload to dir/<random>-<name> and returns the relative reference.
func (l *Local) Save(ctx context.Context, dir string, upload Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if upload.Size <= 0 || upload.Open == nil {
		return "", ErrEmptyFile
	}

	cleanDir, err := cleanRef(dir)
	if err != nil {
		return "", err
	}

	ref := path.Join(cleanDir, fmt.Sprintf("%s-%s", uuid.New().String()[:8], safeFilename(upload.Filename)))
	target := filepath.Join(l.root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	src, err := upload.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return ref, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (l *Local) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, err := cleanRef(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.root, filepath.FromSlash(cleaned))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// URL maps a reference to the public path it is served from.
// Absolute URLs pass through unchanged.
func (l *Local) URL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return l.urlPath + "/" + strings.TrimPrefix(ref, "/")
}

func cleanRef(ref string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(filepath.ToSlash(ref)), "/")
	if trimmed == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func safeFilename(name string) string {
	base := filepath.Base(filepath.ToSlash(strings.TrimSpace(name)))
	base = path.Base(base)
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "upload"
	}
	if len(base) > 100 {
		ext := filepath.Ext(base)
		if len(ext) > 10 {
			ext = ""
		}
		base = base[:100-len(ext)] + ext
	}
	return base
}
