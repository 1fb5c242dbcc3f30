package pgstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/config"
	"github.com/splitsheet/splitsheet/internal/provider"
)

// S3Storage implements the Storage capability over an S3-compatible object
// store (MinIO in development).
type S3Storage struct {
	client       *s3.Client
	presign      *s3.PresignClient
	baseEndpoint string
}

// NewS3Storage builds the S3 client from static credentials and the
// configured endpoint. Construction performs no network calls.
func NewS3Storage(cfg *config.Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", common.ErrProvider, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:       client,
		presign:      s3.NewPresignClient(client),
		baseEndpoint: strings.TrimRight(cfg.S3BaseEndpoint, "/"),
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, bucket, path string, data []byte, opts *provider.UploadOptions) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &path,
		Body:   bytes.NewReader(data),
	}
	if opts != nil && opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}
	if opts != nil && !opts.Upsert {
		// Object writes in S3 overwrite unconditionally; refuse up front
		// when the caller did not ask to replace an existing object.
		if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &path}); err == nil {
			return "", fmt.Errorf("%w: object %s/%s already exists", common.ErrValidation, bucket, path)
		}
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("%w: put object: %v", common.ErrProvider, err)
	}
	return s.PublicURL(bucket, path), nil
}

func (s *S3Storage) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &path})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: object %s/%s", common.ErrNotFound, bucket, path)
		}
		return nil, fmt.Errorf("%w: get object: %v", common.ErrProvider, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read object: %v", common.ErrProvider, err)
	}
	return data, nil
}

func (s *S3Storage) Delete(ctx context.Context, bucket, path string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &bucket, Key: &path}); err != nil {
		return fmt.Errorf("%w: delete object: %v", common.ErrProvider, err)
	}
	return nil
}

// PublicURL derives the path-style URL without contacting the backend.
func (s *S3Storage) PublicURL(bucket, path string) string {
	return s.baseEndpoint + "/" + bucket + "/" + path
}

// SignedURL presigns a GET for the object.
func (s *S3Storage) SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		expiresIn = provider.DefaultSignedURLExpiry
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &path,
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("%w: presign get: %v", common.ErrProvider, err)
	}
	return req.URL, nil
}
