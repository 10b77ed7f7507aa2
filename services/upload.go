package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/cppla/teyvattales/storage"
)

// saveUpload stores fh through files, turning rejected files into validation errors.
func saveUpload(ctx context.Context, files storage.FileStore, field string, fh *multipart.FileHeader) (string, error) {
	if files == nil {
		return "", NewInternalError(errors.New("no file store configured"))
	}
	url, err := files.Save(ctx, field, fh)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return "", NewValidationError("Only image files (png, jpg, jpeg, gif, webp) can be uploaded")
	case errors.Is(err, storage.ErrFileTooLarge):
		return "", NewValidationError("The uploaded file is too large")
	case err != nil:
		return "", NewInternalError(fmt.Errorf("store %s: %w", field, err))
	}
	return url, nil
}
