package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestFileURL(t *testing.T) {
	tests := []struct {
		base string
		name string
		want string
	}{
		{"https://example.gov/pub/pr/", "pr.class", "https://example.gov/pub/pr/pr.class"},
		{"https://example.gov/pub/pr", "pr.class", "https://example.gov/pub/pr/pr.class"},
		{"https://example.gov/pub/pr//", "/pr.class", "https://example.gov/pub/pr/pr.class"},
	}

	for _, tt := range tests {
		if got := FileURL(tt.base, tt.name); got != tt.want {
			t.Errorf("FileURL(%q, %q) = %q, want %q", tt.base, tt.name, got, tt.want)
		}
	}
}

func TestClient_Get(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		switch r.URL.Path {
		case "/listing/":
			_, _ = w.Write([]byte("<pre>listing</pre>"))
		case "/listing/a.txt":
			_, _ = w.Write([]byte("hello"))
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, ToolUserAgent)
	ctx := context.Background()

	listing, err := c.FetchListing(ctx, srv.URL+"/listing/")
	require.NoError(t, err)
	assert.Equal(t, "<pre>listing</pre>", listing)
	assert.Equal(t, ToolUserAgent, gotUA)
	assert.Equal(t, AcceptHTML, gotAccept)

	body, err := c.Download(ctx, FileURL(srv.URL+"/listing/", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
	assert.Equal(t, AcceptAny, gotAccept)

	_, err = c.Download(ctx, srv.URL+"/nope")
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusForbidden, herr.StatusCode)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(0, "  ")
	assert.Equal(t, BrowserUserAgent, c.UserAgent())
	assert.Equal(t, defaultTimeout, c.http.Timeout)
}
