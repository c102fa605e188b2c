// storage.go
package s3

import (
	"context"
	"io"
)

// S3Object определяет интерфейс для объектов S3
type S3Object interface {
	io.ReadCloser
	ContentLength() int64
	ContentType() string
}

// s3Object реализует интерфейс S3Object
type s3Object struct {
	io.ReadCloser
	contentLength int64
	contentType   string
}

func (o *s3Object) ContentLength() int64 {
	return o.contentLength
}

func (o *s3Object) ContentType() string {
	return o.contentType
}

// Storage определяет интерфейс для хранения содержимого версий.
// Ключ объекта собирается из идентификаторов на стороне клиента.
type Storage interface {
	WriteContent(ctx context.Context, bucketID int64, itemKey string, versionID string, data []byte) error
	ReadContent(ctx context.Context, bucketID int64, itemKey string, versionID string) (S3Object, error)
	DeleteContent(ctx context.Context, bucketID int64, itemKey string, versionID string) error
}
