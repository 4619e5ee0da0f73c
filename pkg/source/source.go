package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

const (
	// BrowserUserAgent is sent by default; some publishers reject
	// non-browser agents outright.
	BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// ToolUserAgent identifies the tool itself. Publishers that ask for a
	// contact address in the agent string should get one via --user-agent.
	ToolUserAgent = "listing-s3-sync (+https://github.com/yuya-takeyama/listing-s3-sync)"

	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptJSON = "application/json"
	AcceptAny  = "*/*"

	defaultTimeout = 60 * time.Second
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Client fetches listing pages and file bodies from the source web server.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient builds a Client. A zero timeout falls back to 60s and an empty
// userAgent to BrowserUserAgent.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = BrowserUserAgent
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(hc *http.Client, userAgent string) *Client {
	c := NewClient(0, userAgent)
	if hc != nil {
		c.http = hc
	}
	return c
}

func (c *Client) UserAgent() string {
	return c.userAgent
}

// Get performs a GET and returns the full body.
func (c *Client) Get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.WithStack(&HTTPError{URL: url, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Errorf("reading body of %s: %w", url, err)
	}
	return body, nil
}

// FetchListing returns the directory index page at url as text. Invalid
// UTF-8 is kept as-is; the parser only looks at ASCII structure.
func (c *Client) FetchListing(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url, AcceptHTML)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Download returns the bytes of the file at url, verbatim.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	return c.Get(ctx, url, AcceptAny)
}

// FileURL joins base and name with exactly one slash between them.
func FileURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}
