// Package backend is the HTTP client of the HR backend REST API. It maps
// transport and protocol failures onto NetworkError, ProtocolError and
// HTTPError so callers never inspect raw responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/hr-console/internal/errors"
	"github.com/jrsteele09/hr-console/internal/metrics"
	"golang.org/x/oauth2"
)

const (
	DefaultTimeout  = 10 * time.Second
	maxResponseSize = 10 << 20

	RequestIDHeader = "X-Request-ID"
)

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// Client talks to one backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	nowTime    func() time.Time
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Authorized returns a copy of the client that sends the token of ts as a
// Bearer credential on every request.
func (c *Client) Authorized(ts oauth2.TokenSource) *Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	authed := *c
	authed.httpClient = &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base},
		Timeout:   c.httpClient.Timeout,
	}
	return &authed
}

// Do sends a JSON request and decodes a JSON response into out. in and out
// may be nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	op := method + " " + path

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return classifyTransportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	if !isJSON(contentType) {
		return &ProtocolError{Op: op, Status: resp.StatusCode, ContentType: contentType, Err: errors.New("response is not JSON")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{Op: op, Status: resp.StatusCode, ContentType: contentType, Err: err}
	}
	return nil
}

// Stream sends a GET request and hands the raw body to the caller, who must
// close it. The request deadline covers reading the body.
func (c *Client) Stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	resp, err := c.send(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		cancel()
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		cancel()
		return nil, "", newHTTPError(resp.StatusCode, body)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, resp.Header.Get("Content-Type"), nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, in any) (*http.Response, error) {
	op := method + " " + path

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("[backend %s] marshal request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("[backend %s] build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.nowTime()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveBackendRequest(endpointLabel(path), c.nowTime().Sub(start))
	if err != nil {
		if errors.Is(err, apperrors.ErrNoSession) {
			return nil, apperrors.ErrNoSession
		}
		return nil, classifyTransportError(op, err)
	}
	return resp, nil
}

func classifyTransportError(op string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &NetworkError{Op: op, Timeout: timeout, Err: err}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// endpointLabel collapses numeric path segments so metric labels stay bounded.
func endpointLabel(path string) string {
	return numericSegment.ReplaceAllString(path, "/{id}$1")
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
