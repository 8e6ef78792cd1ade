package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements BlobStore on the local filesystem. Files are spread
// over two directory levels derived from the key, with the content type kept
// in a ".meta" sidecar next to each file.
type LocalStore struct {
	baseDir    string
	publicBase string
}

// NewLocalStore creates the base directory if needed. publicBase is the URL
// prefix under which the router serves the files, e.g. "http://localhost:8080/files".
func NewLocalStore(baseDir, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Base(filepath.Clean("/" + key))
	if clean != key || key == "" || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	if len(key) < 4 {
		return filepath.Join(s.baseDir, key), nil
	}
	return filepath.Join(s.baseDir, key[0:2], key[2:4], key), nil
}

// Put creates the file exclusively; an existing key fails with ErrKeyExists.
func (s *LocalStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("put %q: %w", key, ErrKeyExists)
		}
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(fullPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.WriteFile(fullPath+".meta", []byte(contentType), 0o644); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Get opens the file at key.
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if meta, err := os.ReadFile(fullPath + ".meta"); err == nil {
		contentType = string(meta)
	}
	return f, contentType, nil
}

// Delete removes the file and its sidecar.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	_ = os.Remove(fullPath + ".meta")
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// PublicURL returns publicBase + "/" + key.
func (s *LocalStore) PublicURL(key string) string {
	if s.publicBase == "" {
		return key
	}
	return s.publicBase + "/" + key
}
