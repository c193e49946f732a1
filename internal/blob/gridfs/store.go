// Package gridfs implements blob.Store on MongoDB GridFS for self-hosted deployments.
package gridfs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/anonto42/memorylane/backend/internal/blob"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Object describes a stored file
type Object struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"filename"`
	Length      int64              `bson:"length"`
	ContentType string             `bson:"-"`
	Metadata    bson.M             `bson:"metadata"`
}

// Store keeps objects in a GridFS bucket named after the storage bucket
type Store struct {
	bucket  *gridfs.Bucket
	name    string
	baseURL string
}

// New creates a Store. baseURL is where the server serves PublicPath.
func New(db *mongo.Database, name, baseURL string) (*Store, error) {
	b, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &Store{bucket: b, name: name, baseURL: baseURL}, nil
}

// Bucket returns the bucket name
func (s *Store) Bucket() string {
	return s.name
}

// Put implements blob.Store
func (s *Store) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := s.bucket.UploadFromStream(path, r, opts); err != nil {
		return "", apperrors.NewNetwork(fmt.Sprintf("upload %s", path), err)
	}
	return s.PublicURL(path), nil
}

// PublicURL returns the URL the server serves path under
func (s *Store) PublicURL(path string) string {
	return blob.PublicURL(s.baseURL, s.name, path)
}

// Remove implements blob.Store
func (s *Store) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	objs, err := s.find(ctx, bson.M{"filename": bson.M{"$in": paths}})
	if err != nil {
		return err
	}
	for _, o := range objs {
		if err := s.bucket.DeleteContext(ctx, o.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return apperrors.NewNetwork(fmt.Sprintf("remove %s", o.Name), err)
		}
	}
	return nil
}

// Stat returns the newest object stored at path
func (s *Store) Stat(ctx context.Context, path string) (*Object, error) {
	objs, err := s.find(ctx, bson.M{"filename": path})
	if err != nil {
		return nil, err
	}
	return newest(objs)
}

// newest returns the last of objs, which find sorts by upload date
func newest(objs []Object) (*Object, error) {
	if len(objs) == 0 {
		return nil, apperrors.NewNotFound("object not found")
	}
	o := objs[len(objs)-1]
	if ct, ok := o.Metadata["contentType"].(string); ok {
		o.ContentType = ct
	}
	return &o, nil
}

// Open streams the object with the given id to w
func (s *Store) Open(ctx context.Context, id primitive.ObjectID, w io.Writer) error {
	if _, err := s.bucket.DownloadToStream(id, w); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return apperrors.NewNotFound("object not found")
		}
		return apperrors.NewNetwork("download object", err)
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]Object, error) {
	cursor, err := s.bucket.FindContext(ctx, filter, options.GridFSFind().SetSort(bson.D{{Key: "uploadDate", Value: 1}}))
	if err != nil {
		return nil, apperrors.NewNetwork("find objects", err)
	}
	defer cursor.Close(ctx)

	var objs []Object
	if err := cursor.All(ctx, &objs); err != nil {
		return nil, apperrors.NewNetwork("decode objects", err)
	}
	return objs, nil
}
