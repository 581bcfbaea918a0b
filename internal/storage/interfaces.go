package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored report.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// IStorage is the object store receiving exported reports.
type IStorage interface {
	GetBucketName() string
	PutObject(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error
	PresignedGetObject(ctx context.Context, objectPath string) (string, error)
	ListObjects(ctx context.Context, prefix string, maxKeys int32) ([]ObjectInfo, error)
	StatObject(ctx context.Context, objectPath string) (ObjectInfo, error)
	RemoveObject(ctx context.Context, objectPath string) error
}
