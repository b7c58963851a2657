package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/s3gw/proxy/internal/gwerr"
)

// ClientResolver resolves a backend id to an ObjectClient. *Registry is the
// production implementation; tests satisfy this with a fake to drive
// dataplane/replication without a real S3-compatible endpoint.
type ClientResolver interface {
	Client(ctx context.Context, backendID string) (ObjectClient, error)
}

// ObjectClient is the small surface dataplane and replication need against
// a physical backend bucket: get/put/delete/head, independent of any
// concrete SDK type so callers can be tested against a fake.
type ObjectClient interface {
	GetObject(ctx context.Context, bucket, key string) (*ObjectReader, error)
	PutObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	DeleteObject(ctx context.Context, bucket, key string) error
	HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)
}

// ObjectReader is the result of a GetObject call: the streamed body plus
// the metadata callers propagate onto an HTTP response.
type ObjectReader struct {
	Body        io.ReadCloser
	ContentType string
	ETag        string
}

// ObjectInfo is the result of a HeadObject call.
type ObjectInfo struct {
	ETag string
}

// s3ObjectClient adapts *s3.Client to ObjectClient, translating the SDK's
// not-found error types to gwerr.ErrNotFound so callers never import
// aws-sdk-go-v2 themselves.
type s3ObjectClient struct {
	client *s3.Client
}

func (c *s3ObjectClient) GetObject(ctx context.Context, bucket, key string) (*ObjectReader, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s/%s: %w", bucket, key, gwerr.ErrNotFound)
		}
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	reader := &ObjectReader{Body: out.Body}
	if out.ContentType != nil {
		reader.ContentType = *out.ContentType
	}
	if out.ETag != nil {
		reader.ETag = *out.ETag
	}
	return reader, nil
}

func (c *s3ObjectClient) PutObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{Bucket: &bucket, Key: &key, Body: body}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (c *s3ObjectClient) DeleteObject(ctx context.Context, bucket, key string) error {
	if _, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &bucket, Key: &key}); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (c *s3ObjectClient) HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s/%s: %w", bucket, key, gwerr.ErrNotFound)
		}
		return nil, fmt.Errorf("head object %s/%s: %w", bucket, key, err)
	}
	info := &ObjectInfo{}
	if out.ETag != nil {
		info.ETag = *out.ETag
	}
	return info, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
