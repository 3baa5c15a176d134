// Package upstream talks to the GC Spends backend REST API. It owns request
// shaping, auth headers and the mapping of transport failures onto the
// application error codes the rest of the service keys on.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"refbook/internal/core/apperror"
	"refbook/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Config holds the upstream connection settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is a thin JSON client over the backend API. Every request carries
// the bearer token and a per-call deadline.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	log     *logger.Logger
	tracer  trace.Tracer
}

// NewClient builds a client. A zero timeout falls back to 30 seconds.
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: timeout,
		http:    &http.Client{},
		log:     log.WithComponent("upstream"),
		tracer:  otel.Tracer("refbook/upstream"),
	}
}

// SetToken replaces the bearer token, e.g. after a refresh.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	data, _, err := c.roundTrip(ctx, method, path, query, reader, contentType)
	return data, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "upstream."+method+" "+path,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, "", apperror.NewInternal(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.log.WithContext(ctx).Warnw("upstream request timed out", "method", method, "path", path)
			return nil, "", apperror.NewTimeout(path)
		}
		c.log.WithContext(ctx).Warnw("upstream request failed", "method", method, "path", path, "error", err)
		return nil, "", apperror.NewNetwork(path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNoContent {
		return nil, "", nil
	}

	data, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body is best effort here: a broken read must not mask the
		// status we already have.
		var detail map[string]any
		if err == nil && len(data) > 0 {
			if jsonErr := json.Unmarshal(data, &detail); jsonErr != nil {
				detail = map[string]any{"raw": string(data)}
			}
		}
		c.log.WithContext(ctx).Warnw("upstream returned error status",
			"method", method, "path", path, "status", resp.StatusCode)
		return nil, "", apperror.NewUpstream(resp.StatusCode, http.StatusText(resp.StatusCode), detail)
	}
	if err != nil {
		return nil, "", apperror.NewNetwork(path, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// Download issues a GET request and returns the raw body along with its
// content type, for blob endpoints like export and template.
func (c *Client) Download(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	return c.roundTrip(ctx, http.MethodGet, path, query, nil, "")
}

// Upload sends a file as multipart form data under the given field name.
func (c *Client) Upload(ctx context.Context, path string, query url.Values, field, filename string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build multipart body: %w", err))
	}
	if _, err := part.Write(content); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("write multipart body: %w", err))
	}
	if err := w.Close(); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("close multipart body: %w", err))
	}
	data, _, err := c.roundTrip(ctx, http.MethodPost, path, query, &buf, w.FormDataContentType())
	return data, err
}
