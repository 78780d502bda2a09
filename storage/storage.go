// Package storage persists uploaded gram pictures.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("picture must be a JPEG, PNG, GIF or WebP image")
	ErrTooLarge        = errors.New("picture is too large")
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Store saves and removes pictures, addressing them by the name Save returns
type Store interface {
	Save(ctx context.Context, header *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, name string) error
}

// Disk keeps pictures as flat files in Dir
type Disk struct {
	Dir      string
	MaxBytes int64
}

// NewDisk creates the upload directory if needed
func NewDisk(dir string, maxBytes int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{Dir: dir, MaxBytes: maxBytes}, nil
}

func (d *Disk) Save(ctx context.Context, header *multipart.FileHeader) (string, error) {
	if d.MaxBytes > 0 && header.Size > d.MaxBytes {
		return "", ErrTooLarge
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mime, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("detect picture type: %w", err)
	}
	if !mimetype.EqualsAny(mime.String(), allowedTypes...) {
		return "", ErrUnsupportedType
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + mime.Extension()
	dst, err := os.OpenFile(filepath.Join(d.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create picture: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write picture: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close picture: %w", err)
	}
	return name, nil
}

func (d *Disk) Delete(_ context.Context, name string) error {
	if name == "" {
		return nil
	}
	// names come from Save, but never let one escape Dir
	if filepath.Base(name) != name {
		return fmt.Errorf("invalid picture name %q", name)
	}
	if err := os.Remove(filepath.Join(d.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete picture: %w", err)
	}
	return nil
}

// URL is the public path a stored picture is served from
func URL(name string) string {
	if name == "" {
		return ""
	}
	return "/uploads/" + name
}
