// Package blob stores memory images and produces their public URLs.
package blob

import (
	"context"
	"io"
	"strings"
)

// PublicPath is the URL path under which objects are publicly readable
const PublicPath = "/storage/v1/object/public/"

// Store is an object storage bucket
type Store interface {
	// Put stores the object at path and returns its public URL.
	Put(ctx context.Context, path, contentType string, r io.Reader) (string, error)
	// Remove deletes the objects at paths. Missing objects are not an error.
	Remove(ctx context.Context, paths []string) error
}

// PublicURL builds the public URL of path in bucket
func PublicURL(baseURL, bucket, path string) string {
	return strings.TrimRight(baseURL, "/") + PublicPath + bucket + "/" + strings.TrimLeft(path, "/")
}

// PathFromURL extracts the object path from a public URL of bucket
func PathFromURL(url, bucket string) (string, bool) {
	marker := PublicPath + bucket + "/"
	i := strings.Index(url, marker)
	if i < 0 {
		return "", false
	}
	path := url[i+len(marker):]
	if j := strings.IndexAny(path, "?#"); j >= 0 {
		path = path[:j]
	}
	if path == "" {
		return "", false
	}
	return path, true
}
