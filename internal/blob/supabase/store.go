// Package supabase implements blob.Store with Supabase Storage.
package supabase

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/anonto42/memorylane/backend/internal/blob"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
)

// objectAPI is the subset of the storage-go client used here
type objectAPI interface {
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	RemoveFile(bucketId string, paths []string) ([]storage_go.FileUploadResponse, error)
}

// Store is a Supabase Storage bucket
type Store struct {
	api     objectAPI
	bucket  string
	baseURL string
}

// New creates a Store that authenticates with token (a user access token or a service key)
func New(baseURL, apiKey, token, bucket string) *Store {
	if token == "" {
		token = apiKey
	}
	api := storage_go.NewClient(strings.TrimRight(baseURL, "/")+"/storage/v1", token, map[string]string{"apikey": apiKey})
	return &Store{api: api, bucket: bucket, baseURL: baseURL}
}

// NewFromClient creates a Store from an existing supabase-go client
func NewFromClient(c *supa.Client, baseURL, bucket string) *Store {
	return &Store{api: c.Storage, bucket: bucket, baseURL: baseURL}
}

// Put implements blob.Store
func (s *Store) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	upsert := false
	_, err := s.api.UploadFile(s.bucket, path, r, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", apperrors.NewNetwork(fmt.Sprintf("upload %s", path), err)
	}
	return blob.PublicURL(s.baseURL, s.bucket, path), nil
}

// Remove implements blob.Store
func (s *Store) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if _, err := s.api.RemoveFile(s.bucket, paths); err != nil {
		return apperrors.NewNetwork("remove objects", err)
	}
	return nil
}
