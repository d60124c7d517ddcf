// Package bitlinks exposes one method per Bitly bitlink operation. Each method
// shapes the endpoint and parameters and delegates to a Requester; apart from
// the metrics time unit check, errors come from the Requester unchanged
// except for the operation name.
package bitlinks

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sundayezeilo/bitly/client"
	"github.com/sundayezeilo/bitly/errx"
)

const (
	EndpointExpand   = "expand"
	EndpointCreate   = "bitlinks"
	EndpointShorten  = "shorten"
	EndpointRetrieve = "bitlinks/%s"
	EndpointUpdate   = "bitlinks/%s"
	EndpointMetrics  = "bitlinks/%s/%s"

	EndpointClicks        = "bitlinks/%s/clicks"
	EndpointClicksSummary = "bitlinks/%s/clicks/summary"
)

// Requester is the HTTP layer the facade delegates to; *client.Client
// satisfies it.
type Requester interface {
	Get(ctx context.Context, endpoint string, query url.Values) (client.Response, error)
	Post(ctx context.Context, endpoint string, body any) (client.Response, error)
}

// Service holds nothing but its Requester and is safe for concurrent use.
type Service struct {
	r Requester
}

func New(r Requester) *Service {
	return &Service{r: r}
}

// CreateParams are the fields accepted by Create. Empty fields are left out
// of the request so the service defaults apply.
type CreateParams struct {
	LongURL   string
	Domain    string
	Title     string
	Tags      []string
	Deeplinks []Deeplink
	GroupGUID string
}

// ShortenOption sets an optional Shorten field.
type ShortenOption func(map[string]any)

func WithDomain(domain string) ShortenOption {
	return func(p map[string]any) { p["domain"] = domain }
}

func WithGroupGUID(guid string) ShortenOption {
	return func(p map[string]any) { p["group_guid"] = guid }
}

// Expand resolves a bitlink ID to its long URL.
func (s *Service) Expand(ctx context.Context, bitlinkID string) (client.Response, error) {
	const op = "bitlinks.Expand"

	resp, err := s.r.Post(ctx, EndpointExpand, map[string]any{
		"bitlink_id": bitlinkID,
	})
	return wrap(op, resp, err)
}

// Create creates a bitlink with the full set of optional fields.
func (s *Service) Create(ctx context.Context, p CreateParams) (client.Response, error) {
	const op = "bitlinks.Create"

	params := compact(map[string]any{
		"long_url":   p.LongURL,
		"domain":     p.Domain,
		"title":      p.Title,
		"tags":       p.Tags,
		"deeplinks":  p.Deeplinks,
		"group_guid": p.GroupGUID,
	})

	resp, err := s.r.Post(ctx, EndpointCreate, params)
	return wrap(op, resp, err)
}

// Shorten converts a long URL to a bitlink.
func (s *Service) Shorten(ctx context.Context, longURL string, opts ...ShortenOption) (client.Response, error) {
	const op = "bitlinks.Shorten"

	params := map[string]any{"long_url": longURL}
	for _, opt := range opts {
		opt(params)
	}

	resp, err := s.r.Post(ctx, EndpointShorten, compact(params))
	return wrap(op, resp, err)
}

// Get retrieves a bitlink.
func (s *Service) Get(ctx context.Context, bitlink string) (client.Response, error) {
	const op = "bitlinks.Get"

	resp, err := s.r.Get(ctx, fmt.Sprintf(EndpointRetrieve, bitlink), nil)
	return wrap(op, resp, err)
}

// Update sends fields to the bitlink as given; nothing is filtered.
func (s *Service) Update(ctx context.Context, bitlink string, fields map[string]any) (client.Response, error) {
	const op = "bitlinks.Update"

	if fields == nil {
		fields = map[string]any{}
	}

	resp, err := s.r.Post(ctx, fmt.Sprintf(EndpointUpdate, bitlink), fields)
	return wrap(op, resp, err)
}

// Clicks returns click counts per time unit.
func (s *Service) Clicks(ctx context.Context, bitlink string, opts ...MetricsOption) (client.Response, error) {
	return s.metrics(ctx, "bitlinks.Clicks", fmt.Sprintf(EndpointClicks, bitlink), opts)
}

// ClicksSummary returns the total click count over the window.
func (s *Service) ClicksSummary(ctx context.Context, bitlink string, opts ...MetricsOption) (client.Response, error) {
	return s.metrics(ctx, "bitlinks.ClicksSummary", fmt.Sprintf(EndpointClicksSummary, bitlink), opts)
}

func (s *Service) MetricsByReferrers(ctx context.Context, bitlink string, opts ...MetricsOption) (client.Response, error) {
	return s.metrics(ctx, "bitlinks.MetricsByReferrers", fmt.Sprintf(EndpointMetrics, bitlink, "referrers"), opts)
}

func (s *Service) MetricsByReferringDomains(ctx context.Context, bitlink string, opts ...MetricsOption) (client.Response, error) {
	return s.metrics(ctx, "bitlinks.MetricsByReferringDomains", fmt.Sprintf(EndpointMetrics, bitlink, "referring_domains"), opts)
}

func (s *Service) MetricsByCountries(ctx context.Context, bitlink string, opts ...MetricsOption) (client.Response, error) {
	return s.metrics(ctx, "bitlinks.MetricsByCountries", fmt.Sprintf(EndpointMetrics, bitlink, "countries"), opts)
}

func (s *Service) MetricsReferrersByDomain(ctx context.Context, bitlink string, opts ...MetricsOption) (client.Response, error) {
	return s.metrics(ctx, "bitlinks.MetricsReferrersByDomain", fmt.Sprintf(EndpointMetrics, bitlink, "referrers_by_domains"), opts)
}

// metrics validates the parameters before any request is made.
func (s *Service) metrics(ctx context.Context, op, endpoint string, opts []MetricsOption) (client.Response, error) {
	query, err := MetricsParams(opts...)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}

	resp, err := s.r.Get(ctx, endpoint, query)
	return wrap(op, resp, err)
}

func wrap(op string, resp client.Response, err error) (client.Response, error) {
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return resp, nil
}

// compact drops empty strings, nil values and empty slices and maps, so the
// service applies its own defaults for them. Zero numbers and false are kept.
func compact(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if val == "" {
				continue
			}
		case []string:
			if len(val) == 0 {
				continue
			}
		case []Deeplink:
			if len(val) == 0 {
				continue
			}
		case []any:
			if len(val) == 0 {
				continue
			}
		case map[string]any:
			if len(val) == 0 {
				continue
			}
		}
		out[k] = v
	}
	return out
}
