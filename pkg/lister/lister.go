// Package lister snapshots what currently lives under a destination prefix.
package lister

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
)

// Listing maps a name (key with the prefix stripped) to its size in bytes.
type Listing map[string]int64

// Names returns the listing's names in lexical order.
func (l Listing) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListError means the destination could not be listed. No delete set can
// be computed without a trustworthy snapshot.
type ListError struct {
	Bucket string
	Prefix string
	Err    error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list destination s3://%s/%s: %v", e.Bucket, e.Prefix, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// KeyPrefix normalizes a configured prefix into the exact string every
// managed key starts with: "" stays "", anything else ends in one "/".
func KeyPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// List returns every object directly under prefix. Keys that do not start
// with the exact key prefix, and the bare prefix itself, are dropped.
// Nested keys ("sub/x") are kept under their relative name, so stray nested
// objects are still candidates for deletion.
func List(ctx context.Context, client s3client.Client, bucket, prefix string) (Listing, error) {
	keyPrefix := KeyPrefix(prefix)

	objects, err := client.ListObjects(ctx, &s3client.ListObjectsRequest{
		Bucket: bucket,
		Prefix: keyPrefix,
	})
	if err != nil {
		return nil, &ListError{Bucket: bucket, Prefix: keyPrefix, Err: err}
	}

	listing := make(Listing, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, keyPrefix) {
			continue
		}
		name := obj.Key[len(keyPrefix):]
		if name == "" {
			continue
		}
		listing[name] = obj.Size
	}
	return listing, nil
}
