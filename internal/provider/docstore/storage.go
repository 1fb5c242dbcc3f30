package docstore

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/splitsheet/splitsheet/internal/provider"
)

// StorageClient implements the Storage capability over the platform's
// object endpoints.
type StorageClient struct {
	c *Client
}

func NewStorageClient(c *Client) *StorageClient {
	return &StorageClient{c: c}
}

func objectPath(bucket, path string) string {
	return "/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapeObjectKey(path)
}

// escapeObjectKey escapes each path segment individually, keeping the
// separators intact.
func escapeObjectKey(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func (s *StorageClient) Upload(ctx context.Context, bucket, path string, data []byte, opts *provider.UploadOptions) (string, error) {
	contentType := "application/octet-stream"
	method := http.MethodPost
	if opts != nil {
		if opts.ContentType != "" {
			contentType = opts.ContentType
		}
		if opts.Upsert {
			method = http.MethodPut
		}
	}

	if _, err := s.c.doRaw(ctx, method, objectPath(bucket, path), nil, data, contentType); err != nil {
		return "", normalizeErr(err)
	}
	return s.PublicURL(bucket, path), nil
}

func (s *StorageClient) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	data, err := s.c.doRaw(ctx, http.MethodGet, objectPath(bucket, path), nil, nil, "")
	if err != nil {
		return nil, normalizeErr(err)
	}
	return data, nil
}

func (s *StorageClient) Delete(ctx context.Context, bucket, path string) error {
	if _, err := s.c.doRaw(ctx, http.MethodDelete, objectPath(bucket, path), nil, nil, ""); err != nil {
		return normalizeErr(err)
	}
	return nil
}

// PublicURL derives the permanent URL without contacting the platform.
func (s *StorageClient) PublicURL(bucket, path string) string {
	return s.c.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + escapeObjectKey(path)
}

// SignedURL falls back to the permanent public URL: the platform has no
// native expiring URLs, so the result is best-effort temporary only.
func (s *StorageClient) SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	return s.PublicURL(bucket, path), nil
}
