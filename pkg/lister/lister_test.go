package lister

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client/s3clienttest"
)

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", ""},
		{"/", ""},
		{"raw/bls", "raw/bls/"},
		{"raw/bls/", "raw/bls/"},
		{"/raw/bls//", "raw/bls/"},
		{" raw ", "raw/"},
	}

	for _, tt := range tests {
		if got := KeyPrefix(tt.prefix); got != tt.want {
			t.Errorf("KeyPrefix(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestList(t *testing.T) {
	client := s3clienttest.NewMemoryClient()
	client.Seed("bucket", "raw/bls/a.txt", 10)
	client.Seed("bucket", "raw/bls/b.txt", 20)
	client.Seed("bucket", "raw/bls/", 0)
	client.Seed("bucket", "raw/blsx/c.txt", 5)
	client.Seed("bucket", "raw/bls/nested/d.txt", 7)
	client.Seed("bucket", "other/e.txt", 1)

	got, err := List(context.Background(), client, "bucket", "raw/bls")
	require.NoError(t, err)

	assert.Equal(t, Listing{
		"a.txt":        10,
		"b.txt":        20,
		"nested/d.txt": 7,
	}, got)
}

func TestList_FiltersInexactPrefixMatches(t *testing.T) {
	// Some stores treat the prefix as a hint; the lister must not trust it.
	mock := &s3clienttest.MockClient{
		ListObjectsFunc: func(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ObjectInfo, error) {
			return []s3client.ObjectInfo{
				{Key: "raw/bls/a.txt", Size: 1},
				{Key: "raw/blsother/b.txt", Size: 2},
				{Key: "elsewhere/c.txt", Size: 3},
			}, nil
		},
	}

	got, err := List(context.Background(), mock, "bucket", "raw/bls/")
	require.NoError(t, err)
	assert.Equal(t, Listing{"a.txt": 1}, got)
}

func TestList_EmptyDestination(t *testing.T) {
	client := s3clienttest.NewMemoryClient()

	got, err := List(context.Background(), client, "bucket", "raw/bls")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_Error(t *testing.T) {
	boom := errors.New("access denied")
	mock := &s3clienttest.MockClient{
		ListObjectsFunc: func(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ObjectInfo, error) {
			return nil, boom
		},
	}

	_, err := List(context.Background(), mock, "bucket", "raw/bls")

	var lerr *ListError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "raw/bls/", lerr.Prefix)
	assert.True(t, errors.Is(err, boom))
}

func TestListing_Names(t *testing.T) {
	l := Listing{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, l.Names())
}
