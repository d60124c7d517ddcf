// Package bitlytest runs an in-memory fake of the Bitly v4 API for tests.
//
//	srv := bitlytest.NewServer(t, "token")
//	c, _ := bitly.Create(creds, map[string]string{"api_base_url": srv.BaseURL()})
//
// It implements the endpoints used by the bitlinks package with the status
// codes and error bodies of the real service.
package bitlytest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
)

const (
	// DefaultDomain is used when a create or shorten request names none.
	DefaultDomain = "bit.ly"

	apiPrefix = "/v4/"
)

var timeUnits = []string{"minute", "hour", "day", "week", "month"}

// Request is a request received by the fake, kept for assertions.
type Request struct {
	Method    string
	Path      string
	Query     map[string][]string
	Header    http.Header
	Body      []byte
	RequestID string
}

// Server is a running fake Bitly API.
type Server struct {
	*httptest.Server

	token  string
	store  *store
	logger *slog.Logger

	mu       sync.Mutex
	requests []Request
}

// NewServer starts a fake accepting the bearer token and stops it when the
// test ends.
func NewServer(tb testing.TB, token string) *Server {
	tb.Helper()

	s := &Server{
		token:  token,
		store:  newStore(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s.Server = httptest.NewServer(s)
	tb.Cleanup(s.Close)
	return s
}

// BaseURL is the API root to configure a client with.
func (s *Server) BaseURL() string {
	return s.URL + strings.TrimSuffix(apiPrefix, "/")
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Seed stores a link directly and returns it with its generated ID.
func (s *Server) Seed(l Link) Link {
	if l.Domain == "" {
		l.Domain = DefaultDomain
	}
	link, _, err := s.store.create(l)
	if err != nil {
		panic(err)
	}
	return link
}

// RecordClick adds a click to the link with the given ID.
func (s *Server) RecordClick(id string, c Click) error {
	return s.store.recordClick(id, c)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	s.record(r, body)

	if r.Header.Get("Authorization") != "Bearer "+s.token {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "")
		return
	}

	path, ok := strings.CutPrefix(r.URL.Path, apiPrefix)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "")
		return
	}

	switch {
	case r.Method == http.MethodPost && path == "shorten":
		s.createLink(w, body, false)
	case r.Method == http.MethodPost && path == "bitlinks":
		s.createLink(w, body, true)
	case r.Method == http.MethodPost && path == "expand":
		s.expand(w, body)
	case strings.HasPrefix(path, "bitlinks/"):
		s.bitlink(w, r, strings.TrimPrefix(path, "bitlinks/"), body)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "")
	}
}

func (s *Server) record(r *http.Request, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Header:    r.Header.Clone(),
		Body:      body,
		RequestID: r.Header.Get("X-Request-ID"),
	})
}

type createRequest struct {
	LongURL   string           `json:"long_url"`
	Domain    string           `json:"domain"`
	GroupGUID string           `json:"group_guid"`
	Title     string           `json:"title"`
	Tags      []string         `json:"tags"`
	Deeplinks []map[string]any `json:"deeplinks"`
}

// createLink serves POST /shorten and POST /bitlinks. Shorten ignores
// title, tags and deeplinks like the real endpoint.
func (s *Server) createLink(w http.ResponseWriter, body []byte, full bool) {
	var req createRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARG_BODY", err.Error())
		return
	}
	if req.LongURL == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARG_LONG_URL", "long_url is required")
		return
	}

	l := Link{LongURL: req.LongURL, Domain: req.Domain, GroupGUID: req.GroupGUID}
	if l.Domain == "" {
		l.Domain = DefaultDomain
	}
	if full {
		l.Title = req.Title
		l.Tags = req.Tags
		l.Deeplinks = req.Deeplinks
	}

	link, created, err := s.store.create(l)
	if err != nil {
		s.logger.Error("create link", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, bitlinkBody(link))
}

func (s *Server) expand(w http.ResponseWriter, body []byte) {
	var req struct {
		BitlinkID string `json:"bitlink_id"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.BitlinkID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARG_BITLINK_ID", "bitlink_id is required")
		return
	}

	link, err := s.store.get(req.BitlinkID)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         link.ID,
		"link":       "https://" + link.ID,
		"long_url":   link.LongURL,
		"created_at": link.CreatedAt.Format(TimeLayout),
	})
}

var metricSuffixes = []string{
	"/clicks/summary",
	"/clicks",
	"/referrers_by_domains",
	"/referring_domains",
	"/referrers",
	"/countries",
}

// bitlink serves everything under /bitlinks/{id}. IDs contain a slash
// (domain/hash), so the metric suffix is matched from the end.
func (s *Server) bitlink(w http.ResponseWriter, r *http.Request, rest string, body []byte) {
	for _, suffix := range metricSuffixes {
		if id, ok := strings.CutSuffix(rest, suffix); ok {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "")
				return
			}
			s.metrics(w, r, id, strings.TrimPrefix(suffix, "/"))
			return
		}
	}

	switch r.Method {
	case http.MethodGet:
		link, err := s.store.get(rest)
		if err != nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "")
			return
		}
		writeJSON(w, http.StatusOK, bitlinkBody(link))

	case http.MethodPost, http.MethodPatch:
		var patch map[string]any
		if len(body) > 0 {
			if err := json.Unmarshal(body, &patch); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_ARG_BODY", err.Error())
				return
			}
		}
		link, err := s.store.update(rest, patch)
		if err != nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "")
			return
		}
		writeJSON(w, http.StatusOK, bitlinkBody(link))

	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "")
	}
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request, id, metric string) {
	q := r.URL.Query()
	unit := q.Get("unit")
	if unit == "" {
		unit = "day"
	}
	if !slices.Contains(timeUnits, unit) {
		writeError(w, http.StatusBadRequest, "INVALID_ARG_UNIT", "unit must be one of "+strings.Join(timeUnits, ", "))
		return
	}

	clicks, err := s.store.clicksFor(id)
	if errors.Is(err, errNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "")
		return
	}

	units := q.Get("units")
	if units == "" {
		units = "-1"
	}
	out := map[string]any{
		"unit":           unit,
		"units":          json.Number(units),
		"unit_reference": q.Get("unit_reference"),
	}

	switch metric {
	case "clicks":
		counts := []map[string]any{}
		if len(clicks) > 0 {
			counts = append(counts, map[string]any{"clicks": len(clicks), "date": q.Get("unit_reference")})
		}
		out["link_clicks"] = counts
	case "clicks/summary":
		out["total_clicks"] = len(clicks)
	case "referrers":
		out["facet"] = "referrers"
		out["metrics"] = countBy(clicks, func(c Click) string { return c.Referrer })
	case "referring_domains":
		out["facet"] = "referring_domains"
		out["metrics"] = countBy(clicks, func(c Click) string { return c.ReferrerDomain })
	case "countries":
		out["facet"] = "countries"
		out["metrics"] = countBy(clicks, func(c Click) string { return c.Country })
	case "referrers_by_domains":
		out["facet"] = "referrers"
		byDomain := map[string][]Click{}
		for _, c := range clicks {
			byDomain[c.ReferrerDomain] = append(byDomain[c.ReferrerDomain], c)
		}
		domains := make([]map[string]any, 0, len(byDomain))
		for _, d := range slices.Sorted(maps.Keys(byDomain)) {
			domains = append(domains, map[string]any{
				"network":   d,
				"referrers": countBy(byDomain[d], func(c Click) string { return c.Referrer }),
			})
		}
		out["referrers_by_domain"] = domains
	}

	writeJSON(w, http.StatusOK, out)
}

// countBy groups clicks by key, most clicked first.
func countBy(clicks []Click, key func(Click) string) []map[string]any {
	counts := map[string]int{}
	for _, c := range clicks {
		counts[key(c)]++
	}

	values := slices.Sorted(maps.Keys(counts))
	slices.SortStableFunc(values, func(a, b string) int { return counts[b] - counts[a] })

	out := make([]map[string]any, 0, len(values))
	for _, v := range values {
		out = append(out, map[string]any{"value": v, "clicks": counts[v]})
	}
	return out
}

func bitlinkBody(l Link) map[string]any {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	deeplinks := l.Deeplinks
	if deeplinks == nil {
		deeplinks = []map[string]any{}
	}
	return map[string]any{
		"id":              l.ID,
		"link":            "https://" + l.ID,
		"long_url":        l.LongURL,
		"title":           l.Title,
		"archived":        l.Archived,
		"created_at":      l.CreatedAt.Format(TimeLayout),
		"custom_bitlinks": []string{},
		"tags":            tags,
		"deeplinks":       deeplinks,
		"references": map[string]string{
			"group": "https://api-ssl.bitly.com/v4/groups/" + l.GroupGUID,
		},
	}
}
