package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sundayezeilo/bitly/credentials"
	"github.com/sundayezeilo/bitly/errx"
	"github.com/sundayezeilo/bitly/internal/httpx"
)

// recorded is what the fake upstream saw.
type recorded struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

// newUpstream starts a fake Bitly API answering every request with status and body.
func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var seen []recorded

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = append(seen, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   b,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, &seen
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	creds, err := credentials.NewAccessToken("test-token")
	if err != nil {
		t.Fatalf("NewAccessToken() unexpected error: %v", err)
	}
	c, err := New(creds, Options{
		BaseURL: baseURL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	creds, _ := credentials.NewAccessToken("test")

	t.Run("defaults to the v4 API root", func(t *testing.T) {
		c, err := New(creds, Options{})
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}
		if got := c.BaseURL(); got != DefaultBaseURL {
			t.Errorf("BaseURL() = %q, want %q", got, DefaultBaseURL)
		}
	})

	t.Run("base URL override", func(t *testing.T) {
		c, err := New(creds, Options{BaseURL: "https://bitly.internal/v4/"})
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}
		if got, want := c.BaseURL(), "https://bitly.internal/v4"; got != want {
			t.Errorf("BaseURL() = %q, want %q", got, want)
		}
	})

	t.Run("nil credentials", func(t *testing.T) {
		_, err := New(nil, Options{})
		if got := errx.KindOf(err); got != errx.Invalid {
			t.Fatalf("KindOf() = %v, want %v", got, errx.Invalid)
		}
	})

	t.Run("invalid base URL", func(t *testing.T) {
		_, err := New(creds, Options{BaseURL: "not a url"})
		if got := errx.KindOf(err); got != errx.Invalid {
			t.Fatalf("KindOf() = %v, want %v", got, errx.Invalid)
		}
	})

	t.Run("caller http client is not modified", func(t *testing.T) {
		hc := &http.Client{Timeout: 5 * time.Second}
		if _, err := New(creds, Options{HTTPClient: hc}); err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}
		if hc.Transport != nil {
			t.Error("expected caller's Transport to stay nil")
		}
	})
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		endpoint string
		want     string
	}{
		{
			name:     "plain endpoint",
			baseURL:  "https://api-ssl.bitly.com/v4",
			endpoint: "bitlinks",
			want:     "https://api-ssl.bitly.com/v4/bitlinks",
		},
		{
			name:     "leading slash endpoint",
			baseURL:  "https://api-ssl.bitly.com/v4",
			endpoint: "/bitlinks/bit.ly/abc/clicks",
			want:     "https://api-ssl.bitly.com/v4/bitlinks/bit.ly/abc/clicks",
		},
		{
			name:     "trailing slash base",
			baseURL:  "https://api-ssl.bitly.com/v4/",
			endpoint: "shorten",
			want:     "https://api-ssl.bitly.com/v4/shorten",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.baseURL)
			if got := c.BuildURL(tt.endpoint); got != tt.want {
				t.Errorf("BuildURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestClient_Get(t *testing.T) {
	srv, seen := newUpstream(t, http.StatusOK, `{"id":"bit.ly/abc","link":"https://bit.ly/abc"}`)
	c := newTestClient(t, srv.URL+"/v4")

	query := url.Values{"unit": {"day"}, "units": {"-1"}, "size": {"50"}}
	resp, err := c.Get(context.Background(), "bitlinks/bit.ly/abc/clicks", query)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if resp["id"] != "bit.ly/abc" {
		t.Errorf("resp[id] = %v, want bit.ly/abc", resp["id"])
	}

	got := (*seen)[0]
	if got.method != http.MethodGet {
		t.Errorf("method = %s, want GET", got.method)
	}
	if got.path != "/v4/bitlinks/bit.ly/abc/clicks" {
		t.Errorf("path = %s, want /v4/bitlinks/bit.ly/abc/clicks", got.path)
	}
	for k, v := range query {
		if got.query.Get(k) != v[0] {
			t.Errorf("query[%s] = %q, want %q", k, got.query.Get(k), v[0])
		}
	}
	if auth := got.header.Get("Authorization"); auth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer test-token")
	}
	if got.header.Get(httpx.RequestIDHeader) == "" {
		t.Error("expected X-Request-ID header to be set")
	}
	if ua := got.header.Get("User-Agent"); !strings.HasPrefix(ua, "bitly-go/") {
		t.Errorf("User-Agent = %q, want bitly-go/ prefix", ua)
	}
}

func TestClient_Post(t *testing.T) {
	srv, seen := newUpstream(t, http.StatusCreated, `{"link":"https://bit.ly/abc"}`)
	c := newTestClient(t, srv.URL)

	body := map[string]any{"long_url": "https://example.com", "tags": []string{"a", "b"}}
	resp, err := c.Post(context.Background(), "bitlinks", body)
	if err != nil {
		t.Fatalf("Post() unexpected error: %v", err)
	}
	if resp["link"] != "https://bit.ly/abc" {
		t.Errorf("resp[link] = %v, want https://bit.ly/abc", resp["link"])
	}

	got := (*seen)[0]
	if got.method != http.MethodPost {
		t.Errorf("method = %s, want POST", got.method)
	}
	if ct := got.header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var sent map[string]any
	if err := json.Unmarshal(got.body, &sent); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if sent["long_url"] != "https://example.com" {
		t.Errorf("long_url = %v, want https://example.com", sent["long_url"])
	}
	tags, _ := sent["tags"].([]any)
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags = %v, want [a b]", sent["tags"])
	}
}

func TestClient_PostNilBodySendsEmptyObject(t *testing.T) {
	srv, seen := newUpstream(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	if _, err := c.Post(context.Background(), "bitlinks/bit.ly/abc", nil); err != nil {
		t.Fatalf("Post() unexpected error: %v", err)
	}

	if got := strings.TrimSpace(string((*seen)[0].body)); got != "{}" {
		t.Errorf("body = %q, want {}", got)
	}
}

func TestClient_RequestIDFromContext(t *testing.T) {
	srv, seen := newUpstream(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	ctx := WithRequestID(context.Background(), "trace-me")
	if _, err := c.Get(ctx, "bitlinks/bit.ly/abc", nil); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}

	if got := (*seen)[0].header.Get(httpx.RequestIDHeader); got != "trace-me" {
		t.Errorf("X-Request-ID = %q, want %q", got, "trace-me")
	}
}

func TestClient_ParseResponse(t *testing.T) {
	t.Run("empty body is no data", func(t *testing.T) {
		srv, _ := newUpstream(t, http.StatusOK, "")
		c := newTestClient(t, srv.URL)

		resp, err := c.Post(context.Background(), "bitlinks/bit.ly/abc", map[string]any{"archived": true})
		if err != nil {
			t.Fatalf("Post() unexpected error: %v", err)
		}
		if resp != nil {
			t.Errorf("Post() = %#v, want nil Response", resp)
		}
	})

	t.Run("empty object is not no data", func(t *testing.T) {
		srv, _ := newUpstream(t, http.StatusOK, "{}")
		c := newTestClient(t, srv.URL)

		resp, err := c.Get(context.Background(), "bitlinks/bit.ly/abc", nil)
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		if resp == nil || len(resp) != 0 {
			t.Errorf("Get() = %#v, want empty non-nil Response", resp)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		srv, _ := newUpstream(t, http.StatusOK, "<html>oops</html>")
		c := newTestClient(t, srv.URL)

		resp, err := c.Get(context.Background(), "bitlinks/bit.ly/abc", nil)
		if resp != nil {
			t.Errorf("Get() = %#v, want nil", resp)
		}
		if got := errx.KindOf(err); got != errx.InvalidResponse {
			t.Fatalf("KindOf() = %v, want %v (err: %v)", got, errx.InvalidResponse, err)
		}
		for _, want := range []string{"json decode failed", "invalid character"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q should contain %q", err.Error(), want)
			}
		}
	})
}

func TestClient_ParseResponseRejectsNonJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"whitespace only", "  \n"},
		{"stray closing brace", `{"id":"bit.ly/abc"}}`},
		{"stray closing bracket", `{"id":"bit.ly/abc"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newUpstream(t, http.StatusOK, tt.body)
			c := newTestClient(t, srv.URL)

			resp, err := c.Get(context.Background(), "bitlinks/bit.ly/abc", nil)
			if resp != nil {
				t.Errorf("Get() = %#v, want nil", resp)
			}
			if got := errx.KindOf(err); got != errx.InvalidResponse {
				t.Errorf("KindOf() = %v, want %v (err: %v)", got, errx.InvalidResponse, err)
			}
		})
	}
}

func TestClient_HandleFailure(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    errx.Kind
		errContains []string
	}{
		{
			name:        "400 carries upstream message",
			status:      http.StatusBadRequest,
			body:        `{"message":"already exists"}`,
			wantKind:    errx.BadRequest,
			errContains: []string{"bad request", "already exists"},
		},
		{
			name:        "400 without body",
			status:      http.StatusBadRequest,
			body:        "",
			wantKind:    errx.BadRequest,
			errContains: []string{"bad request"},
		},
		{
			name:        "403 carries upstream message",
			status:      http.StatusForbidden,
			body:        `{"message":"FORBIDDEN"}`,
			wantKind:    errx.Authentication,
			errContains: []string{"forbidden", "FORBIDDEN"},
		},
		{
			name:        "404 carries request URL",
			status:      http.StatusNotFound,
			body:        `{"message":"NOT_FOUND"}`,
			wantKind:    errx.NotFound,
			errContains: []string{"not found", "/bitlinks/bitlinkId"},
		},
		{
			name:        "429 is a generic request failure",
			status:      http.StatusTooManyRequests,
			body:        `{"message":"RATE_LIMIT_EXCEEDED"}`,
			wantKind:    errx.Request,
			errContains: []string{"429", "RATE_LIMIT_EXCEEDED"},
		},
		{
			name:        "500 is a generic request failure",
			status:      http.StatusInternalServerError,
			body:        "",
			wantKind:    errx.Request,
			errContains: []string{"500"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newUpstream(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL)

			resp, err := c.Get(context.Background(), "bitlinks/bitlinkId", nil)
			if resp != nil {
				t.Errorf("Get() = %#v, want nil", resp)
			}
			if got := errx.KindOf(err); got != tt.wantKind {
				t.Fatalf("KindOf() = %v, want %v (err: %v)", got, tt.wantKind, err)
			}
			if got := errx.StatusOf(err); got != tt.status {
				t.Errorf("StatusOf() = %d, want %d", got, tt.status)
			}
			for _, want := range tt.errContains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q should contain %q", err.Error(), want)
				}
			}
		})
	}
}

func TestClient_NotFoundMessageHasFullURL(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusNotFound, "")
	c := newTestClient(t, srv.URL+"/v4")

	_, err := c.Get(context.Background(), "bitlinks/bitlinkId", nil)

	want := srv.URL + "/v4/bitlinks/bitlinkId"
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Fatalf("error = %v, want it to contain %q", err, want)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close() // nothing listens any more

	c := newTestClient(t, baseURL)

	_, err := c.Get(context.Background(), "bitlinks/bit.ly/abc", nil)
	if got := errx.KindOf(err); got != errx.Request {
		t.Fatalf("KindOf() = %v, want %v (err: %v)", got, errx.Request, err)
	}
	if got := errx.StatusOf(err); got != 0 {
		t.Errorf("StatusOf() = %d, want 0", got)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	srv, seen := newUpstream(t, http.StatusOK, "{}")
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "bitlinks/bit.ly/abc", nil)
	if got := errx.KindOf(err); got != errx.Request {
		t.Fatalf("KindOf() = %v, want %v", got, errx.Request)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if len(*seen) != 0 {
		t.Errorf("expected no request to reach upstream, got %d", len(*seen))
	}
}

type brokenCreds struct{}

func (brokenCreds) Token(context.Context) (string, error) { return "", errors.New("vault sealed") }

func TestClient_CredentialsFailure(t *testing.T) {
	srv, seen := newUpstream(t, http.StatusOK, "{}")

	c, err := New(brokenCreds{}, Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	_, err = c.Get(context.Background(), "bitlinks/bit.ly/abc", nil)
	if got := errx.KindOf(err); got != errx.Authentication {
		t.Fatalf("KindOf() = %v, want %v", got, errx.Authentication)
	}
	if len(*seen) != 0 {
		t.Errorf("expected no request to reach upstream, got %d", len(*seen))
	}
}

func TestClient_Metrics(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, "{}")
	creds, _ := credentials.NewAccessToken("test")
	reg := prometheus.NewRegistry()

	c, err := New(creds, Options{BaseURL: srv.URL, Metrics: reg})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	if _, err := c.Get(context.Background(), "bitlinks/bit.ly/abc", nil); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}

	m, err := httpx.NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "200")); got != 1 {
		t.Errorf("requests{GET,200} = %v, want 1", got)
	}
}
