package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid storage key")

// LocalUploader хранит файлы на локальном диске, они раздаются сервером по PublicBaseURL.
type LocalUploader struct {
	dir           string
	publicBaseURL string
}

func NewLocalUploader(dir, publicBaseURL string) *LocalUploader {
	return &LocalUploader{dir: dir, publicBaseURL: publicBaseURL}
}

// Provision создаёт каталог хранилища. Вызывается один раз при старте.
func (u *LocalUploader) Provision() error {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", u.dir, err)
	}
	return nil
}

func (u *LocalUploader) Dir() string {
	return u.dir
}

func (u *LocalUploader) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if key == "" || clean == string(filepath.Separator) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(u.dir, clean), nil
}

func (u *LocalUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	path, err := u.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file for %s: %w", key, err)
	}
	tmpName := f.Name()
	_, copyErr := io.Copy(f, reader)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = ctx.Err()
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return nil, fmt.Errorf("failed to write %s: %w", key, copyErr)
		}
		return nil, fmt.Errorf("failed to write %s: %w", key, closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}

	return &UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *LocalUploader) Delete(ctx context.Context, key string) error {
	path, err := u.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (u *LocalUploader) GetPublicURL(key string) string {
	url, err := joinPublicURL(u.publicBaseURL, key)
	if err != nil {
		slog.Warn("failed to build public URL", slog.String("key", key), slog.Any("error", err))
		return ""
	}
	return url
}
