package s3client

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/internal/retry"
)

// API is the subset of *s3.Client used by AWSClient.
type API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type AWSClient struct {
	client   API
	uploader *manager.Uploader
	retry    retry.Policy
}

type Option func(*AWSClient)

// WithMaxRetries enables retries of throttled and 5xx calls on top of the
// SDK's own retryer.
func WithMaxRetries(n int) Option {
	return func(c *AWSClient) {
		c.retry = retry.NewPolicy(n)
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *AWSClient) {
		c.retry = p
	}
}

func NewAWSClient(cfg aws.Config, opts ...Option) *AWSClient {
	return NewAWSClientFromAPI(s3.NewFromConfig(cfg), opts...)
}

func NewAWSClientFromAPI(api API, opts ...Option) *AWSClient {
	c := &AWSClient{
		client:   api,
		uploader: manager.NewUploader(api),
		retry:    retry.NewPolicy(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AWSClient) ListObjects(ctx context.Context, req *ListObjectsRequest) ([]ObjectInfo, error) {
	var items []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(req.Bucket),
		Prefix: aws.String(req.Prefix),
	})

	for paginator.HasMorePages() {
		page, err := retry.Do(ctx, c.retry, func(ctx context.Context) (*s3.ListObjectsV2Output, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, errors.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			items = append(items, ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	return items, nil
}

func (c *AWSClient) PutObject(ctx context.Context, req *PutObjectRequest) error {
	_, err := retry.Do(ctx, c.retry, func(ctx context.Context) (*manager.UploadOutput, error) {
		input := &s3.PutObjectInput{
			Bucket:        aws.String(req.Bucket),
			Key:           aws.String(req.Key),
			Body:          bytes.NewReader(req.Body),
			ContentLength: aws.Int64(int64(len(req.Body))),
			Metadata:      req.Metadata,
		}
		if req.ContentType != "" {
			input.ContentType = aws.String(req.ContentType)
		}
		if req.ChecksumSHA256 != "" {
			input.ChecksumAlgorithm = types.ChecksumAlgorithmSha256
			// A whole-object checksum is only valid for single-part uploads;
			// multipart parts get their own from ChecksumAlgorithm.
			if int64(len(req.Body)) < c.uploader.PartSize {
				input.ChecksumSHA256 = aws.String(req.ChecksumSHA256)
			}
		}
		return c.uploader.Upload(ctx, input)
	})
	if err != nil {
		return errors.Errorf("failed to put object: %w", err)
	}

	return nil
}

func (c *AWSClient) DeleteObjects(ctx context.Context, req *DeleteObjectsRequest) (*DeleteObjectsResult, error) {
	if len(req.Keys) == 0 {
		return &DeleteObjectsResult{}, nil
	}
	if len(req.Keys) > MaxDeleteKeys {
		return nil, errors.WithDetails(ErrTooManyKeys, "keys", len(req.Keys), "max", MaxDeleteKeys)
	}

	objects := make([]types.ObjectIdentifier, 0, len(req.Keys))
	for _, key := range req.Keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := retry.Do(ctx, c.retry, func(ctx context.Context) (*s3.DeleteObjectsOutput, error) {
		return c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(req.Bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
	})
	if err != nil {
		return nil, errors.Errorf("failed to delete objects: %w", err)
	}

	result := &DeleteObjectsResult{}
	for _, d := range out.Deleted {
		result.Deleted = append(result.Deleted, aws.ToString(d.Key))
	}
	for _, e := range out.Errors {
		result.Errors = append(result.Errors, DeleteError{
			Key:     aws.ToString(e.Key),
			Code:    aws.ToString(e.Code),
			Message: aws.ToString(e.Message),
		})
	}
	return result, nil
}

func (c *AWSClient) GetObject(ctx context.Context, req *GetObjectRequest) (io.ReadCloser, error) {
	out, err := retry.Do(ctx, c.retry, func(ctx context.Context) (*s3.GetObjectOutput, error) {
		return c.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(req.Bucket),
			Key:    aws.String(req.Key),
		})
	})
	if err != nil {
		return nil, errors.Errorf("failed to get object s3://%s/%s: %w", req.Bucket, req.Key, err)
	}
	return out.Body, nil
}
