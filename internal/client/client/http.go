package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/coevo/internal/common"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

// Options configures an HTTPClient. BaseURL is required; the rest default.
type Options struct {
	BaseURL    string
	APIPrefix  string
	EventsPath string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     logging.Logger
	Metrics    Metrics
}

// HTTPClient implements Client over the REST API.
type HTTPClient struct {
	apiURL     string
	eventsURL  string
	timeout    time.Duration
	httpClient *http.Client
	tokens     TokenSource
	log        logging.Logger
	metrics    Metrics
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(opts Options) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", opts.BaseURL)
	}

	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}
	events := opts.EventsPath
	if events == "" {
		events = "/events"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	apiURL := base.String() + "/" + strings.Trim(prefix, "/")
	return &HTTPClient{
		apiURL:     strings.TrimRight(apiURL, "/"),
		eventsURL:  strings.TrimRight(apiURL, "/") + "/" + strings.TrimLeft(events, "/"),
		timeout:    opts.Timeout,
		httpClient: hc,
		tokens:     opts.Tokens,
		log:        logging.OrNop(opts.Logger),
		metrics:    opts.Metrics,
	}, nil
}

func (c *HTTPClient) EventsURL() string {
	return c.eventsURL
}

// AccessToken exposes the current bearer token to the event stream
// connector, which shares the client's TokenSource.
func (c *HTTPClient) AccessToken() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.AccessToken()
}

// HTTP returns the underlying transport client.
func (c *HTTPClient) HTTP() *http.Client {
	return c.httpClient
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type requestConfig struct {
	query          url.Values
	idempotencyKey bool
}

type requestOption func(*requestConfig)

func withQuery(q url.Values) requestOption {
	return func(rc *requestConfig) { rc.query = q }
}

// withIdempotencyKey stamps a fresh Idempotency-Key, one per intent.
func withIdempotencyKey() requestOption {
	return func(rc *requestConfig) { rc.idempotencyKey = true }
}

// withTimeout boxes ctx with the default timeout unless it already has a
// deadline.
func (c *HTTPClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// doJSON performs a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any, opts ...requestOption) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, method, path, contentType, body, opts...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %v", ErrUnavailable, method, path, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// do sends the request and returns the response when it is 2xx. Any other
// status is consumed and converted to *APIError. The caller closes the body.
func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader, opts ...requestOption) (*http.Response, error) {
	var rc requestConfig
	for _, o := range opts {
		o(&rc)
	}

	requestURL := c.apiURL + path
	if len(rc.query) > 0 {
		requestURL += "?" + rc.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("client: failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeader, common.NewRequestID())
	if rc.idempotencyKey {
		req.Header.Set(common.IdempotencyKeyHeader, common.NewRequestID())
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, started)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		c.log.Warn(ctx, "request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	c.observe(method, resp.StatusCode, started)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	c.log.Debug(ctx, "request rejected", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		c.tokens.Invalidate(ctx)
	}
	return nil, apiErr
}

func (c *HTTPClient) observe(method string, status int, started time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveRequest(method, status, time.Since(started).Seconds())
	}
}

// doMultipart uploads r as the "file" field of a multipart form. The
// Content-Type (with boundary) comes from the multipart writer.
func (c *HTTPClient) doMultipart(ctx context.Context, path, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("client: multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("client: reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("client: multipart: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding upload response: %w", err)
	}
	return nil
}

// doDownload streams a binary response body into w.
func (c *HTTPClient) doDownload(ctx context.Context, path string, w io.Writer) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: download %s: %v", ErrUnavailable, path, err)
	}
	return n, nil
}
