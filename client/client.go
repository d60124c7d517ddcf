// Package client is the HTTP layer of the Bitly API client. It turns
// (endpoint, parameters) calls into authenticated requests against the
// configured base URL and normalises every outcome into a Response or an
// *errx.Error.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/sundayezeilo/bitly/credentials"
	"github.com/sundayezeilo/bitly/errx"
	"github.com/sundayezeilo/bitly/internal/httpx"
	"github.com/sundayezeilo/bitly/internal/idgen"
)

const (
	// DefaultBaseURL is the Bitly v4 API root.
	DefaultBaseURL = "https://api-ssl.bitly.com/v4"

	// Version is reported in the User-Agent header.
	Version = "1.0.0"
)

// Options configures a Client. The zero value talks to DefaultBaseURL over
// http.DefaultTransport.
type Options struct {
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// HTTPClient is the transport collaborator. Its Timeout and Transport
	// are honoured; the client never overrides them.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Metrics, when set, receives request counters and latency histograms.
	Metrics prometheus.Registerer
	// TracerProvider, when set, wraps every request in a client span.
	TracerProvider trace.TracerProvider
	// RequestIDs generates X-Request-ID values. Defaults to UUID v7.
	RequestIDs idgen.Generator
	UserAgent  string
}

// Client is safe for concurrent use; it holds no state beyond its
// configuration.
type Client struct {
	baseURL string
	creds   credentials.Provider
	http    *resty.Client
}

// New creates a Client authenticating with creds.
func New(creds credentials.Provider, opts Options) (*Client, error) {
	const op = "client.New"

	if creds == nil {
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("credentials provider is required"))
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("invalid base URL %q", opts.BaseURL))
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ids := opts.RequestIDs
	if ids == nil {
		ids = idgen.NewV7()
	}

	middlewares := []httpx.Middleware{
		httpx.RequestID(ids), // Outermost: everything below sees the ID
		httpx.Logger(logger),
	}
	if opts.Metrics != nil {
		m, err := httpx.NewMetrics(opts.Metrics)
		if err != nil {
			return nil, errx.E(op, errx.Invalid, fmt.Errorf("register metrics: %w", err))
		}
		middlewares = append(middlewares, m.Middleware())
	}
	if opts.TracerProvider != nil {
		middlewares = append(middlewares, httpx.Tracing(opts.TracerProvider)) // Innermost: span covers the wire
	}

	// Copy so the caller's client is left untouched.
	hc := &http.Client{}
	if opts.HTTPClient != nil {
		*hc = *opts.HTTPClient
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = httpx.Chain(middlewares...)(base)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "bitly-go/" + Version
	}

	rc := resty.NewWithClient(hc).
		SetLogger(restyLogger{logger}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)

	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    rc,
	}, nil
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// BuildURL joins the base URL and endpoint with exactly one slash.
// The endpoint is not validated or escaped.
func (c *Client) BuildURL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// Get issues a GET with query appended verbatim.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (Response, error) {
	const op = "client.Get"

	req, err := c.newRequest(ctx, op)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(c.BuildURL(endpoint))
	return c.finish(op, resp, err)
}

// Post issues a POST with body encoded as JSON. A nil body is sent as {}.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (Response, error) {
	const op = "client.Post"

	req, err := c.newRequest(ctx, op)
	if err != nil {
		return nil, err
	}
	// A body is always sent; nil encodes as an empty object.
	if body == nil {
		body = map[string]any{}
	}
	req.SetHeader("Content-Type", "application/json").SetBody(body)

	resp, err := req.Post(c.BuildURL(endpoint))
	return c.finish(op, resp, err)
}

func (c *Client) newRequest(ctx context.Context, op string) (*resty.Request, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, errx.E(op, errx.Authentication, fmt.Errorf("credentials: %w", err))
	}
	if token == "" {
		return nil, errx.E(op, errx.Authentication, credentials.ErrEmptyToken)
	}

	return c.http.R().
		SetContext(ctx).
		SetAuthToken(token), nil
}

// finish maps the outcome of a request onto the client's contract.
func (c *Client) finish(op string, resp *resty.Response, err error) (Response, error) {
	if err != nil {
		// No HTTP response at all: DNS, TLS, connection, context cancellation.
		return nil, errx.E(op, errx.Request, err)
	}
	if resp.IsError() {
		return nil, handleFailure(op, resp)
	}
	return parseResponse(op, resp.Body())
}

// parseResponse decodes a successful body. An empty body is "no data":
// a nil Response and a nil error.
func parseResponse(op string, body []byte) (Response, error) {
	data, err := httpx.DecodeJSON(body)
	if err != nil {
		return nil, errx.E(op, errx.InvalidResponse, fmt.Errorf("json decode failed: %w", err))
	}
	if data == nil {
		return nil, nil
	}
	return Response(data), nil
}

// handleFailure converts an error status into the matching error kind.
// 400 and 403 carry the upstream message, 404 carries the requested URL.
func handleFailure(op string, resp *resty.Response) error {
	status := resp.StatusCode()
	message := httpx.UpstreamMessage(resp.Body())

	kind := httpx.StatusToKind(status)

	var err error
	switch kind {
	case errx.BadRequest:
		err = fmt.Errorf("bad request: %s", message)
	case errx.Authentication:
		err = fmt.Errorf("forbidden: %s", message)
	case errx.NotFound:
		err = fmt.Errorf("not found: %s", requestURL(resp))
	default:
		err = fmt.Errorf("%s %s resulted in %s", resp.Request.Method, requestURL(resp), resp.Status())
		if message != "" {
			err = fmt.Errorf("%w: %s", err, message)
		}
	}
	return errx.ES(op, kind, status, err)
}

// requestURL is the URL actually sent, including the query string.
func requestURL(resp *resty.Response) string {
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		return resp.RawResponse.Request.URL.String()
	}
	return resp.Request.URL
}

// WithRequestID returns a context whose requests reuse requestID as their
// X-Request-ID instead of generating one.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return httpx.WithRequestID(ctx, requestID)
}

// restyLogger routes resty's internal diagnostics to slog.
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...any) {
	r.l.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (r restyLogger) Warnf(format string, v ...any) {
	r.l.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (r restyLogger) Debugf(format string, v ...any) {
	r.l.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
