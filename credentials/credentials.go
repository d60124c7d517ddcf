// Package credentials supplies the bearer token sent with every Bitly API request.
//
// The client only depends on Provider, so alternative sources (environment,
// OAuth token sources, secret stores) plug in without touching it.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultEnvVar is the environment variable read by Env when none is given.
const DefaultEnvVar = "BITLY_ACCESS_TOKEN"

// ErrEmptyToken is returned when a provider has no token to hand out.
var ErrEmptyToken = errors.New("access token cannot be empty")

// Provider produces the current bearer token.
// Implementations must be safe for concurrent use.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// AccessToken is a static, immutable token.
type AccessToken struct {
	token string
}

// NewAccessToken returns a static token provider.
func NewAccessToken(token string) (*AccessToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &AccessToken{token: token}, nil
}

func (a *AccessToken) Token(context.Context) (string, error) {
	return a.token, nil
}

// Env reads the token from an environment variable on every call, so a
// rotated value is picked up without rebuilding the client.
type Env struct {
	name   string
	lookup func(string) (string, bool)
}

// NewEnv returns a provider reading name, or DefaultEnvVar when name is empty.
func NewEnv(name string) *Env {
	if name == "" {
		name = DefaultEnvVar
	}
	return &Env{name: name, lookup: os.LookupEnv}
}

func (e *Env) Token(context.Context) (string, error) {
	v, ok := e.lookup(e.name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s: %w", e.name, ErrEmptyToken)
	}
	return strings.TrimSpace(v), nil
}

// TokenSource adapts an oauth2.TokenSource, e.g. one obtained from an
// oauth2.Config exchange. Wrap the source in oauth2.ReuseTokenSource to
// avoid a refresh per request.
type TokenSource struct {
	src oauth2.TokenSource
}

func NewTokenSource(src oauth2.TokenSource) *TokenSource {
	return &TokenSource{src: src}
}

func (s *TokenSource) Token(context.Context) (string, error) {
	if s.src == nil {
		return "", ErrEmptyToken
	}
	tok, err := s.src.Token()
	if err != nil {
		return "", fmt.Errorf("oauth2 token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", ErrEmptyToken
	}
	return tok.AccessToken, nil
}
