// Package blobtest provides an in-memory blob.Store for tests.
package blobtest

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/anonto42/memorylane/backend/internal/blob"
)

// ErrInjected is returned by operations configured to fail
var ErrInjected = errors.New("blobtest: injected failure")

// Store records objects and removals
type Store struct {
	BaseURL string
	Bucket  string

	mu         sync.Mutex
	objects    map[string][]byte
	removals   [][]string
	failPut    map[string]bool
	failRemove bool
}

// New creates an empty Store
func New(baseURL, bucket string) *Store {
	return &Store{BaseURL: baseURL, Bucket: bucket, objects: map[string][]byte{}, failPut: map[string]bool{}}
}

// FailPut makes every Put of the object whose content equals data fail
func (s *Store) FailPut(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut[data] = true
}

// FailRemove makes every Remove fail after recording the request
func (s *Store) FailRemove(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRemove = on
}

// Put implements blob.Store
func (s *Store) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut[string(b)] {
		return "", ErrInjected
	}
	s.objects[path] = b
	return blob.PublicURL(s.BaseURL, s.Bucket, path), nil
}

// Remove implements blob.Store
func (s *Store) Remove(ctx context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removals = append(s.removals, append([]string(nil), paths...))
	if s.failRemove {
		return ErrInjected
	}
	for _, p := range paths {
		delete(s.objects, p)
	}
	return nil
}

// Paths returns the stored object paths, sorted
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for p := range s.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Removals returns every path list passed to Remove
func (s *Store) Removals() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.removals...)
}

// Seed stores an object directly and returns its public URL
func (s *Store) Seed(path string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return blob.PublicURL(s.BaseURL, s.Bucket, path)
}
