package bitlytest

import (
	"crypto/rand"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	hashLength  = 7
	hashRetries = 3

	// TimeLayout is the timestamp format used throughout the Bitly API.
	TimeLayout = "2006-01-02T15:04:05-0700"
)

var (
	errNotFound  = errors.New("NOT_FOUND")
	errExhausted = errors.New("could not generate unique hash after retries")
)

// Link is a bitlink held by the fake.
type Link struct {
	ID        string
	Domain    string
	LongURL   string
	Title     string
	Archived  bool
	Tags      []string
	Deeplinks []map[string]any
	GroupGUID string
	CreatedAt time.Time
}

// Click is one recorded click used to answer metrics requests.
type Click struct {
	Referrer       string
	ReferrerDomain string
	Country        string
}

// store is an in-memory bitlink repository; safe for concurrent use.
type store struct {
	mu     sync.RWMutex
	links  map[string]*Link // by ID
	byURL  map[string]string
	clicks map[string][]Click
	now    func() time.Time
}

func newStore() *store {
	return &store{
		links:  make(map[string]*Link),
		byURL:  make(map[string]string),
		clicks: make(map[string][]Click),
		now:    time.Now,
	}
}

// create stores a new link or returns the one already shortened for the same
// domain and long URL. created reports whether a new link was made.
func (s *store) create(l Link) (link Link, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := l.Domain + "|" + l.LongURL
	if id, ok := s.byURL[key]; ok {
		return s.copyOf(s.links[id]), false, nil
	}

	for range hashRetries {
		hash, err := generateHash(hashLength)
		if err != nil {
			return Link{}, false, err
		}

		id := l.Domain + "/" + hash
		if _, taken := s.links[id]; taken {
			continue
		}

		l.ID = id
		l.CreatedAt = s.now().UTC().Truncate(time.Second)
		stored := s.copyOf(&l)
		s.links[id] = &stored
		s.byURL[key] = id
		return s.copyOf(&stored), true, nil
	}
	return Link{}, false, errExhausted
}

func (s *store) get(id string) (Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.links[id]
	if !ok {
		return Link{}, errNotFound
	}
	return s.copyOf(l), nil
}

// update applies the known fields of patch; unknown fields are ignored.
func (s *store) update(id string, patch map[string]any) (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[id]
	if !ok {
		return Link{}, errNotFound
	}

	if v, ok := patch["title"].(string); ok {
		l.Title = v
	}
	if v, ok := patch["archived"].(bool); ok {
		l.Archived = v
	}
	if v, ok := patch["tags"].([]any); ok {
		l.Tags = l.Tags[:0]
		for _, tag := range v {
			if name, ok := tag.(string); ok {
				l.Tags = append(l.Tags, name)
			}
		}
	}
	return s.copyOf(l), nil
}

func (s *store) recordClick(id string, c Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[id]; !ok {
		return errNotFound
	}
	s.clicks[id] = append(s.clicks[id], c)
	return nil
}

func (s *store) clicksFor(id string) ([]Click, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.links[id]; !ok {
		return nil, errNotFound
	}
	return slices.Clone(s.clicks[id]), nil
}

func (s *store) copyOf(l *Link) Link {
	c := *l
	c.Tags = slices.Clone(l.Tags)
	c.Deeplinks = make([]map[string]any, len(l.Deeplinks))
	for i, d := range l.Deeplinks {
		c.Deeplinks[i] = maps.Clone(d)
	}
	return c
}

// generateHash returns a random base62 string of the given length.
func generateHash(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = base62Chars[int(b[i])%len(base62Chars)]
	}
	return string(b), nil
}
