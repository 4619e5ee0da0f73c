package s3client

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ParseS3URI splits s3://bucket/path into its bucket and path. The path is
// returned as written; callers decide whether it is a key or a prefix.
func ParseS3URI(uri string) (bucket, path string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", errors.Errorf("invalid S3 URI %q: must start with s3://", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "s3://"), "/", 2)
	if parts[0] == "" {
		return "", "", errors.Errorf("invalid S3 URI %q: missing bucket name", uri)
	}

	bucket = parts[0]
	if len(parts) > 1 {
		path = parts[1]
	}
	return bucket, path, nil
}
