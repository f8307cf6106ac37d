package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// ResponseInfo carries response details.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Empty reports whether the response carried no body to decode.
func (r ResponseInfo) Empty() bool {
	if r.Headers != nil && r.Headers.Get("Content-Length") == "0" {
		return true
	}
	return len(bytes.TrimSpace(r.Body)) == 0
}

// TokenSource provides the persisted bearer token.
type TokenSource interface {
	Token() string
	Clear() error
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenSource
	SignInPath string
	// Location returns the caller's current location, sent as the sign-in "next" parameter.
	Location func() string
	// Redirect receives the sign-in target after a 401.
	Redirect func(target string)
}

// Client issues authenticated JSON requests to one service.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	tokens     TokenSource
	signInPath string
	location   func() string
	redirect   func(target string)
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     cfg.Tokens,
		signInPath: cfg.SignInPath,
		location:   cfg.Location,
		redirect:   cfg.Redirect,
	}
	if c.signInPath == "" {
		c.signInPath = "/auth/signin"
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

type requestOptions struct {
	skipAuth bool
	headers  map[string]string
	query    url.Values
}

// Option adjusts a single request.
type Option func(*requestOptions)

// WithSkipAuth sends the request without the bearer token.
func WithSkipAuth() Option {
	return func(o *requestOptions) { o.skipAuth = true }
}

// WithHeader sets a request header.
func WithHeader(key, value string) Option {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithQuery appends query parameters.
func WithQuery(values url.Values) Option {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// Do sends a raw request and returns the response without interpreting its status.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, opts ...Option) (ResponseInfo, error) {
	var info ResponseInfo
	ctx, traceID := ensureTrace(ctx)
	options := requestOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	target := c.baseURL + path
	if len(options.query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + options.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return info, pkgerrors.Wrapf(err, pkgerrors.InvalidParams, "build request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(TraceHeader, traceID)
	for k, v := range options.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	if !options.skipAuth && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	info.Duration = time.Since(start)
	if err != nil {
		logger.Debug(ctx, "request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return info, pkgerrors.Wrapf(err, pkgerrors.NetworkError, "request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.Headers = resp.Header
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return info, pkgerrors.Wrapf(err, pkgerrors.NetworkError, "read response body failed: %v", err)
	}
	info.Body = bodyBytes
	logger.Debug(ctx, "request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", info.StatusCode),
		zap.Duration("duration", info.Duration),
	)
	return info, nil
}

// Request sends in as JSON and decodes a 2xx response into out. An empty 2xx body leaves
// out untouched. A 401 clears the persisted token and triggers the sign-in redirect.
func (c *Client) Request(ctx context.Context, method, path string, in, out interface{}, opts ...Option) (ResponseInfo, error) {
	var body []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return ResponseInfo{}, pkgerrors.Wrapf(err, pkgerrors.InvalidParams, "encode request failed: %v", err)
		}
		body = data
	}

	info, err := c.Do(ctx, method, path, body, opts...)
	if err != nil {
		return info, err
	}
	if err := c.Check(ctx, info); err != nil {
		return info, err
	}
	if out == nil || info.Empty() {
		return info, nil
	}
	if err := json.Unmarshal(info.Body, out); err != nil {
		return info, pkgerrors.Wrapf(err, pkgerrors.DecodeFailed, "decode response failed: %v", err)
	}
	return info, nil
}

// Check converts a non-2xx response into a typed error, running the 401 side effects.
func (c *Client) Check(ctx context.Context, info ResponseInfo) error {
	if info.StatusCode >= 200 && info.StatusCode < 300 {
		return nil
	}
	if info.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx)
	}
	return pkgerrors.FromStatus(info.StatusCode, info.Body)
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	if c.tokens != nil {
		if err := c.tokens.Clear(); err != nil {
			logger.Warn(ctx, "clear token failed", zap.Error(err))
		}
	}
	target := c.SignInTarget()
	logger.Warn(ctx, "unauthorized, redirecting to sign-in", zap.String("target", target))
	if c.redirect != nil {
		c.redirect(target)
	}
}

// SignInTarget returns the sign-in path carrying the current location as "next".
func (c *Client) SignInTarget() string {
	next := "/"
	if c.location != nil {
		if loc := c.location(); loc != "" {
			next = loc
		}
	}
	return fmt.Sprintf("%s?next=%s", c.signInPath, url.QueryEscape(next))
}

func (c *Client) Get(ctx context.Context, path string, out interface{}, opts ...Option) error {
	_, err := c.Request(ctx, http.MethodGet, path, nil, out, opts...)
	return err
}

func (c *Client) Post(ctx context.Context, path string, in, out interface{}, opts ...Option) error {
	_, err := c.Request(ctx, http.MethodPost, path, in, out, opts...)
	return err
}

func (c *Client) Put(ctx context.Context, path string, in, out interface{}, opts ...Option) error {
	_, err := c.Request(ctx, http.MethodPut, path, in, out, opts...)
	return err
}

func (c *Client) Delete(ctx context.Context, path string, out interface{}, opts ...Option) error {
	_, err := c.Request(ctx, http.MethodDelete, path, nil, out, opts...)
	return err
}
