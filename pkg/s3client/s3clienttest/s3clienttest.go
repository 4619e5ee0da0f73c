// Package s3clienttest provides test doubles for s3client.Client.
package s3clienttest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
)

// MockClient lets each test supply only the operations it exercises.
type MockClient struct {
	ListObjectsFunc   func(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ObjectInfo, error)
	PutObjectFunc     func(ctx context.Context, req *s3client.PutObjectRequest) error
	DeleteObjectsFunc func(ctx context.Context, req *s3client.DeleteObjectsRequest) (*s3client.DeleteObjectsResult, error)
	GetObjectFunc     func(ctx context.Context, req *s3client.GetObjectRequest) (io.ReadCloser, error)
}

var _ s3client.Client = (*MockClient)(nil)

func (m *MockClient) ListObjects(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ObjectInfo, error) {
	if m.ListObjectsFunc != nil {
		return m.ListObjectsFunc(ctx, req)
	}
	return nil, errors.New("ListObjects not implemented")
}

func (m *MockClient) PutObject(ctx context.Context, req *s3client.PutObjectRequest) error {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, req)
	}
	return errors.New("PutObject not implemented")
}

func (m *MockClient) DeleteObjects(ctx context.Context, req *s3client.DeleteObjectsRequest) (*s3client.DeleteObjectsResult, error) {
	if m.DeleteObjectsFunc != nil {
		return m.DeleteObjectsFunc(ctx, req)
	}
	return nil, errors.New("DeleteObjects not implemented")
}

func (m *MockClient) GetObject(ctx context.Context, req *s3client.GetObjectRequest) (io.ReadCloser, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, req)
	}
	return nil, errors.New("GetObject not implemented")
}

// Object is a stored object in a MemoryClient.
type Object struct {
	Body        []byte
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// MemoryClient is an in-memory bucket store that records every mutating
// call in order.
type MemoryClient struct {
	mu      sync.Mutex
	objects map[string]map[string]Object

	// Calls records "put <key>" and "delete <n>" in call order.
	Calls         []string
	DeleteBatches [][]string

	// FailPut, when set, is consulted before each put.
	FailPut func(key string) error
}

var _ s3client.Client = (*MemoryClient)(nil)

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string]map[string]Object)}
}

// Seed stores a placeholder object of the given size.
func (m *MemoryClient) Seed(bucket, key string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(bucket)[key] = Object{Body: make([]byte, size), Size: size}
}

// SeedBody stores an object with the given content.
func (m *MemoryClient) SeedBody(bucket, key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(bucket)[key] = Object{Body: body, Size: int64(len(body))}
}

// Object returns the stored object for key.
func (m *MemoryClient) Object(bucket, key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.bucket(bucket)[key]
	return obj, ok
}

// Keys returns every key in bucket, sorted.
func (m *MemoryClient) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.bucket(bucket)))
	for k := range m.bucket(bucket) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MemoryClient) bucket(name string) map[string]Object {
	b, ok := m.objects[name]
	if !ok {
		b = make(map[string]Object)
		m.objects[name] = b
	}
	return b
}

func (m *MemoryClient) ListObjects(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []s3client.ObjectInfo
	for key, obj := range m.bucket(req.Bucket) {
		if strings.HasPrefix(key, req.Prefix) {
			out = append(out, s3client.ObjectInfo{Key: key, Size: obj.Size})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryClient) PutObject(ctx context.Context, req *s3client.PutObjectRequest) error {
	if m.FailPut != nil {
		if err := m.FailPut(req.Key); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	meta := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		meta[k] = v
	}
	m.bucket(req.Bucket)[req.Key] = Object{
		Body:        bytes.Clone(req.Body),
		Size:        int64(len(req.Body)),
		ContentType: req.ContentType,
		Metadata:    meta,
	}
	m.Calls = append(m.Calls, "put "+req.Key)
	return nil
}

func (m *MemoryClient) DeleteObjects(ctx context.Context, req *s3client.DeleteObjectsRequest) (*s3client.DeleteObjectsResult, error) {
	if len(req.Keys) > s3client.MaxDeleteKeys {
		return nil, errors.WithStack(s3client.ErrTooManyKeys)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	res := &s3client.DeleteObjectsResult{}
	for _, key := range req.Keys {
		delete(m.bucket(req.Bucket), key)
		res.Deleted = append(res.Deleted, key)
	}
	m.DeleteBatches = append(m.DeleteBatches, append([]string(nil), req.Keys...))
	m.Calls = append(m.Calls, "delete "+strconv.Itoa(len(req.Keys)))
	return res, nil
}

func (m *MemoryClient) GetObject(ctx context.Context, req *s3client.GetObjectRequest) (io.ReadCloser, error) {
	obj, ok := m.Object(req.Bucket, req.Key)
	if !ok {
		return nil, errors.Errorf("s3://%s/%s: no such key", req.Bucket, req.Key)
	}
	return io.NopCloser(bytes.NewReader(obj.Body)), nil
}
