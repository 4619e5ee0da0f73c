package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/internal/checksum"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/lister"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/manifest"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/source"
)

// MaxDeleteBatch is the most keys one DeleteObjects request may carry.
const MaxDeleteBatch = s3client.MaxDeleteKeys

const (
	MetadataTimestamp = "source-timestamp"
	// MetadataSize is the size the listing reported, which is what
	// size-gated runs compare against.
	MetadataSize = "source-size"
	// MetadataDeliveredSize is the byte count the server actually sent.
	MetadataDeliveredSize = "delivered-size"
	MetadataSHA256        = "source-sha256"
)

type FailurePolicy string

const (
	// FailFast stops at the first failed file. No deletion is attempted
	// after an upload failure.
	FailFast FailurePolicy = "fail-fast"

	// SkipAndLog records each failure and carries on with the rest.
	SkipAndLog FailurePolicy = "skip-and-log"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailFast, nil
	case FailFast, SkipAndLog:
		return p, nil
	default:
		return "", errors.Errorf("unknown failure policy %q (want %s or %s)", s, FailFast, SkipAndLog)
	}
}

// TransferError reports one file that could not be moved.
type TransferError struct {
	Op   string
	Name string
	Key  string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s (s3 key %s): %v", e.Op, e.Name, e.Key, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Downloader fetches a file body from the source server.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

var _ Downloader = (*source.Client)(nil)

type Config struct {
	BaseURL       string
	Bucket        string
	Prefix        string
	FailurePolicy FailurePolicy
	DryRun        bool
}

type Stats struct {
	Uploaded               int
	Deleted                int
	Failed                 int
	SourceCount            int
	DestinationCountBefore int
	BytesUploaded          int64
	Duration               time.Duration
}

type Executor struct {
	client s3client.Client
	source Downloader
	logger logger.Logger
	cfg    Config
}

func NewExecutor(client s3client.Client, src Downloader, log logger.Logger, cfg Config) *Executor {
	if log == nil {
		log = logger.NullLogger{}
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = FailFast
	}
	return &Executor{
		client: client,
		source: src,
		logger: log,
		cfg:    cfg,
	}
}

// Execute uploads every plan.ToUpload name, then deletes plan.ToDelete in
// batches of at most MaxDeleteBatch keys. Nothing is retried here.
func (e *Executor) Execute(ctx context.Context, plan planner.Plan, src manifest.Manifest) (Stats, error) {
	start := time.Now()
	stats := Stats{SourceCount: len(src)}
	keyPrefix := lister.KeyPrefix(e.cfg.Prefix)

	var failures []error
	fail := func(err *TransferError) error {
		stats.Failed++
		e.logger.Error(err.Op, e.s3URI(err.Key), err.Err)
		if e.cfg.FailurePolicy == FailFast {
			return err
		}
		failures = append(failures, err)
		return nil
	}

	for _, name := range plan.ToUpload {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, errors.WithStack(err)
		}

		entry, ok := src[name]
		if !ok {
			err := &TransferError{Op: "upload", Name: name, Key: keyPrefix + name, Err: errors.New("not in source manifest")}
			if ferr := fail(err); ferr != nil {
				stats.Duration = time.Since(start)
				return stats, ferr
			}
			continue
		}

		n, terr := e.upload(ctx, entry, keyPrefix+name)
		if terr != nil {
			if ferr := fail(terr); ferr != nil {
				stats.Duration = time.Since(start)
				return stats, ferr
			}
			continue
		}
		stats.Uploaded++
		stats.BytesUploaded += n
	}

	keys := make([]string, 0, len(plan.ToDelete))
	for _, name := range plan.ToDelete {
		keys = append(keys, keyPrefix+name)
	}

	for _, batch := range Chunk(keys, MaxDeleteBatch) {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, errors.WithStack(err)
		}

		deleted, terrs := e.deleteBatch(ctx, batch, keyPrefix)
		stats.Deleted += deleted
		for _, terr := range terrs {
			if ferr := fail(terr); ferr != nil {
				stats.Duration = time.Since(start)
				return stats, ferr
			}
		}
	}

	stats.Duration = time.Since(start)
	if len(failures) > 0 {
		return stats, errors.Join(failures...)
	}
	return stats, nil
}

func (e *Executor) upload(ctx context.Context, entry manifest.Entry, key string) (int64, *TransferError) {
	url := source.FileURL(e.cfg.BaseURL, entry.Name)
	e.logger.Upload(url, e.s3URI(key), entry.Size())
	if e.cfg.DryRun {
		return entry.Size(), nil
	}

	body, err := e.source.Download(ctx, url)
	if err != nil {
		return 0, &TransferError{Op: "download", Name: entry.Name, Key: key, Err: err}
	}

	sum := checksum.Bytes(body)
	metadata := map[string]string{
		MetadataSize:          strconv.FormatInt(entry.Size(), 10),
		MetadataDeliveredSize: strconv.Itoa(len(body)),
		MetadataSHA256:        sum.Hex(),
	}
	if entry.Identity.Timestamp != "" {
		metadata[MetadataTimestamp] = entry.Identity.Timestamp
	}

	err = e.client.PutObject(ctx, &s3client.PutObjectRequest{
		Bucket:         e.cfg.Bucket,
		Key:            key,
		Body:           body,
		ContentType:    guessContentType(entry.Name, body),
		Metadata:       metadata,
		ChecksumSHA256: sum.Base64(),
	})
	if err != nil {
		return 0, &TransferError{Op: "upload", Name: entry.Name, Key: key, Err: err}
	}
	return int64(len(body)), nil
}

func (e *Executor) deleteBatch(ctx context.Context, batch []string, keyPrefix string) (int, []*TransferError) {
	for _, key := range batch {
		e.logger.Delete(e.s3URI(key))
	}
	if e.cfg.DryRun {
		return len(batch), nil
	}

	res, err := e.client.DeleteObjects(ctx, &s3client.DeleteObjectsRequest{
		Bucket: e.cfg.Bucket,
		Keys:   batch,
	})
	if err != nil {
		return 0, []*TransferError{{
			Op:   "delete",
			Name: fmt.Sprintf("batch of %d", len(batch)),
			Key:  batch[0],
			Err:  err,
		}}
	}

	var terrs []*TransferError
	for _, de := range res.Errors {
		terrs = append(terrs, &TransferError{
			Op:   "delete",
			Name: strings.TrimPrefix(de.Key, keyPrefix),
			Key:  de.Key,
			Err:  errors.Errorf("%s: %s", de.Code, de.Message),
		})
	}
	return len(res.Deleted), terrs
}

func (e *Executor) s3URI(key string) string {
	return fmt.Sprintf("s3://%s/%s", e.cfg.Bucket, key)
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = MaxDeleteBatch
	}
	var chunks [][]string
	for len(items) > 0 {
		n := min(size, len(items))
		chunks = append(chunks, items[:n:n])
		items = items[n:]
	}
	return chunks
}
