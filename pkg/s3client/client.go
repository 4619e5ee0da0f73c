package s3client

import (
	"context"
	"io"

	"gitlab.com/tozd/go/errors"
)

// MaxDeleteKeys is the most keys a single DeleteObjects request may carry.
const MaxDeleteKeys = 1000

// ErrTooManyKeys is returned by DeleteObjects for batches over MaxDeleteKeys.
var ErrTooManyKeys = errors.Base("too many keys for one delete request")

type ObjectInfo struct {
	Key  string
	Size int64
}

type ListObjectsRequest struct {
	Bucket string
	Prefix string
}

type PutObjectRequest struct {
	Bucket         string
	Key            string
	Body           []byte
	ContentType    string
	Metadata       map[string]string
	ChecksumSHA256 string
}

type DeleteObjectsRequest struct {
	Bucket string
	Keys   []string
}

type DeleteError struct {
	Key     string
	Code    string
	Message string
}

type DeleteObjectsResult struct {
	Deleted []string
	Errors  []DeleteError
}

type GetObjectRequest struct {
	Bucket string
	Key    string
}

// Client is the object-store capability the sync engine depends on.
// ListObjects returns full keys for every page; callers filter them.
type Client interface {
	ListObjects(ctx context.Context, req *ListObjectsRequest) ([]ObjectInfo, error)
	PutObject(ctx context.Context, req *PutObjectRequest) error
	DeleteObjects(ctx context.Context, req *DeleteObjectsRequest) (*DeleteObjectsResult, error)
	GetObject(ctx context.Context, req *GetObjectRequest) (io.ReadCloser, error)
}
