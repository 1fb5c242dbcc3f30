// Package docstore implements the provider contract against a hosted
// document platform: a schemaless JSON document store with companion auth
// and file endpoints, reached over HTTP. Documents are camelCase JSON with
// ISO-8601 timestamps.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/splitsheet/splitsheet/internal/common"
)

// Client is a thin HTTP client for the document platform. All requests are
// authorized with the service API key.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient builds a Client for the given endpoint. A nil httpc falls back
// to a client with a conservative timeout.
func NewClient(baseURL, apiKey string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   httpc,
	}
}

// apiError is a non-2xx platform response. Capability methods normalize it
// onto the common error taxonomy before returning to callers.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("docstore: status %d: %s", e.Status, e.Message)
}

// doJSON performs a JSON request. A nil in skips the request body; a nil
// out discards the response body.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("docstore: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	resp, err := c.do(ctx, method, path, query, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("docstore: decode response: %w", err)
		}
	}
	return nil
}

// doRaw performs a request with an opaque body and returns the raw response
// bytes.
func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	resp, err := c.do(ctx, method, path, query, rd, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("docstore: build request: %w", err)
	}
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrProvider, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := resp.Status
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e); err == nil {
		if e.Message != "" {
			msg = e.Message
		} else if e.Error != "" {
			msg = e.Error
		}
	}
	return &apiError{Status: resp.StatusCode, Message: msg}
}

// normalizeErr maps a platform error onto the common taxonomy. Absent
// records become ErrNotFound; everything else is a provider fault.
func normalizeErr(err error) error {
	var ae *apiError
	if errors.As(err, &ae) {
		if ae.Status == http.StatusNotFound {
			return fmt.Errorf("%w: %s", common.ErrNotFound, ae.Message)
		}
		return fmt.Errorf("%w: %s", common.ErrProvider, ae.Message)
	}
	return err
}

// normalizeAuthErr treats credential rejections as ErrAuth.
func normalizeAuthErr(err error) error {
	var ae *apiError
	if errors.As(err, &ae) {
		switch ae.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", common.ErrAuth, ae.Message)
		}
		return fmt.Errorf("%w: %s", common.ErrProvider, ae.Message)
	}
	return err
}

func isNotFound(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}
