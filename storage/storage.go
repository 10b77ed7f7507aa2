// Package storage persists uploaded images and returns the URL they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/teyvattales/config"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file is too large")
	// ErrUnsupportedType is returned for files that are not images.
	ErrUnsupportedType = errors.New("only image uploads are allowed")
)

var allowedExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// FileStore saves an uploaded form file and returns its public URL.
type FileStore interface {
	Save(ctx context.Context, field string, fh *multipart.FileHeader) (string, error)
}

// NewFromConfig selects the backend named by UploadBackend.
func NewFromConfig(ctx context.Context, cfg config.AppConfig) (FileStore, error) {
	switch strings.ToLower(cfg.UploadBackend) {
	case "", "local":
		return NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix, cfg.UploadMaxBytes()), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
	}
}

// checkUpload validates the extension and declared size and returns the lowered extension.
func checkUpload(fh *multipart.FileHeader, maxSize int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedExt[ext]; !ok {
		return "", ErrUnsupportedType
	}
	if maxSize > 0 && fh.Size > maxSize {
		return "", ErrFileTooLarge
	}
	return ext, nil
}

// objectName builds "<field>-<unixmillis>-<random><ext>".
func objectName(field, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s%s", field, now.UnixMilli(), uuid.NewString()[:8], ext)
}
