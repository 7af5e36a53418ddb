// Package storage is the object store behind uploaded files: signage artwork,
// insurance certificates, signatures and the company logo.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Buckets used by the application.
const (
	BucketSignage      = "signage"
	BucketCertificates = "certificates"
	BucketSignatures   = "signatures"
	BucketBranding     = "branding"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// Object is what Put reports back about a stored object.
type Object struct {
	Key    string
	Size   int64
	SHA256 string
}

// Store keeps opaque objects under bucket/name keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh key in bucket keeping the extension of originalName.
func NewKey(bucket, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return path.Join(bucket, uuid.NewString()+ext)
}

// LocalStore keeps objects as files below Root.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{Root: root}, nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	p, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Object{}, fmt.Errorf("create bucket dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Object{}, fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return Object{}, fmt.Errorf("commit object: %w", err)
	}

	return Object{Key: key, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
