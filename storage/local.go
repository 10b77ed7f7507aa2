package storage

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes uploads to a directory served statically under urlPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
	maxSize   int64
}

// NewLocalStore creates a LocalStore. maxSize <= 0 disables the size limit.
func NewLocalStore(dir, urlPrefix string, maxSize int64) *LocalStore {
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &LocalStore{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/"), maxSize: maxSize}
}

// Dir returns the directory uploads are written to.
func (s *LocalStore) Dir() string { return s.dir }

// URLPrefix returns the path uploads are served under.
func (s *LocalStore) URLPrefix() string { return s.urlPrefix }

func (s *LocalStore) Save(_ context.Context, field string, fh *multipart.FileHeader) (string, error) {
	ext, err := checkUpload(fh, s.maxSize)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := objectName(field, ext, time.Now())
	dstPath := filepath.Join(s.dir, name)
	out, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	// Declared sizes can lie; enforce the limit on the bytes actually written
	var r io.Reader = src
	if s.maxSize > 0 {
		r = &io.LimitedReader{R: src, N: s.maxSize + 1}
	}
	written, err := io.Copy(out, r)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return "", err
	}
	if s.maxSize > 0 && written > s.maxSize {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return "", ErrFileTooLarge
	}
	return path.Join(s.urlPrefix, name), nil
}
