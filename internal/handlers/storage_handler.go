package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/anonto42/memorylane/backend/internal/blob/gridfs"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectReader reads stored image objects
type ObjectReader interface {
	Stat(ctx context.Context, path string) (*gridfs.Object, error)
	Open(ctx context.Context, id primitive.ObjectID, w io.Writer) error
}

// StorageHandler serves public image URLs from the GridFS backend
type StorageHandler struct {
	objects ObjectReader
	bucket  string
}

// NewStorageHandler creates a new StorageHandler for one bucket
func NewStorageHandler(objects ObjectReader, bucket string) *StorageHandler {
	return &StorageHandler{objects: objects, bucket: bucket}
}

// RegisterStorageRoutes registers the public object route
func (h *StorageHandler) RegisterStorageRoutes(e *echo.Echo) {
	e.GET("/storage/v1/object/public/:bucket/*", h.GetObject)
}

// GetObject streams a stored object
func (h *StorageHandler) GetObject(c echo.Context) error {
	path := c.Param("*")
	if c.Param("bucket") != h.bucket || path == "" {
		return echo.NewHTTPError(http.StatusNotFound, "Object not found")
	}

	ctx := c.Request().Context()
	obj, err := h.objects.Stat(ctx, path)
	if err != nil {
		return toHTTPError(err)
	}

	res := c.Response()
	contentType := obj.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	res.Header().Set(echo.HeaderContentType, contentType)
	res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(obj.Length, 10))
	res.Header().Set("Cache-Control", "public, max-age=3600")
	res.WriteHeader(http.StatusOK)
	return h.objects.Open(ctx, obj.ID, res)
}
