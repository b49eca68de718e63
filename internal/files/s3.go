// Package files stores quote document content.
package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/MrKriegler/policy-admin/internal/core"
)

// S3Store keeps content under tenants/<tenant>/documents/<content id>.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds a client from cfg. A non-empty endpoint switches to
// path-style addressing for local emulators.
func NewS3Store(cfg aws.Config, bucket, endpoint string) *S3Store {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: bucket}
}

func objectKey(tenantID, contentID string) string {
	return path.Join("tenants", tenantID, "documents", contentID)
}

func (s *S3Store) Put(ctx context.Context, tenantID, contentID, contentType string, content []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(tenantID, contentID)),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return fmt.Errorf("s3.putObject: %w", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, tenantID, contentID string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(tenantID, contentID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, core.ErrFileContentNotFound
		}
		return nil, fmt.Errorf("s3.getObject: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, core.MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("s3.read: %w", err)
	}
	return data, nil
}
