package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader - хранилище загруженных файлов (квитанции об оплате, фото уловов).
// В базе хранится только ключ; публичный URL строится по нему.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// joinPublicURL склеивает базовый URL и ключ ровно через один слеш.
func joinPublicURL(baseURL, key string) (string, error) {
	if baseURL == "" || key == "" {
		return "", nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid public base URL %q: %w", baseURL, err)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(key, "/")
	return base.String(), nil
}
