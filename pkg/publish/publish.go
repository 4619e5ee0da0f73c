// Package publish copies a JSON API response into the bucket next to the
// mirrored listing.
package publish

import (
	"context"
	"encoding/json"
	"strconv"

	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/internal/checksum"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/source"
)

const ContentTypeJSON = "application/json"

// ErrNotJSON is returned when the API answered with something other than
// a JSON document. Nothing is written in that case.
var ErrNotJSON = errors.Base("response body is not valid JSON")

// Fetcher performs a GET with the given Accept header.
type Fetcher interface {
	Get(ctx context.Context, url, accept string) ([]byte, error)
}

var _ Fetcher = (*source.Client)(nil)

type Result struct {
	Bucket string
	Key    string
	Bytes  int64
}

type Publisher struct {
	client s3client.Client
	fetch  Fetcher
	logger logger.Logger
	dryRun bool
}

type Option func(*Publisher)

func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

func WithDryRun(dryRun bool) Option {
	return func(p *Publisher) {
		p.dryRun = dryRun
	}
}

func NewPublisher(client s3client.Client, fetch Fetcher, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		fetch:  fetch,
		logger: logger.NullLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish fetches apiURL and stores the body verbatim at bucket/key.
func (p *Publisher) Publish(ctx context.Context, apiURL, bucket, key string) (Result, error) {
	if bucket == "" || key == "" {
		return Result{}, errors.New("bucket and key are required")
	}

	body, err := p.fetch.Get(ctx, apiURL, source.AcceptJSON)
	if err != nil {
		return Result{}, errors.Errorf("fetching %s: %w", apiURL, err)
	}
	if !json.Valid(body) {
		return Result{}, errors.WithDetails(ErrNotJSON, "url", apiURL, "bytes", len(body))
	}

	res := Result{Bucket: bucket, Key: key, Bytes: int64(len(body))}
	p.logger.Upload(apiURL, "s3://"+bucket+"/"+key, res.Bytes)
	if p.dryRun {
		return res, nil
	}

	sum := checksum.Bytes(body)
	err = p.client.PutObject(ctx, &s3client.PutObjectRequest{
		Bucket:      bucket,
		Key:         key,
		Body:        body,
		ContentType: ContentTypeJSON,
		Metadata: map[string]string{
			"source-url":    apiURL,
			"source-size":   strconv.Itoa(len(body)),
			"source-sha256": sum.Hex(),
		},
		ChecksumSHA256: sum.Base64(),
	})
	if err != nil {
		p.logger.Error("upload", "s3://"+bucket+"/"+key, err)
		return Result{}, errors.Errorf("storing s3://%s/%s: %w", bucket, key, err)
	}
	return res, nil
}
