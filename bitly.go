// Package bitly is a client for the Bitly v4 REST API.
//
//	creds, err := credentials.NewAccessToken(os.Getenv("BITLY_ACCESS_TOKEN"))
//	...
//	c, err := bitly.New(creds, client.Options{})
//	...
//	resp, err := c.Bitlinks().Shorten(ctx, "https://example.com")
//
// Failures are *errx.Error values; inspect them with errx.KindOf.
package bitly

import (
	"github.com/sundayezeilo/bitly/bitlinks"
	"github.com/sundayezeilo/bitly/client"
	"github.com/sundayezeilo/bitly/credentials"
)

// OptionAPIBaseURL is the only option recognised by Create.
const OptionAPIBaseURL = "api_base_url"

// Client bundles the HTTP client with the operation facades built on it.
type Client struct {
	*client.Client
	bitlinks *bitlinks.Service
}

// New builds a Client from fully typed options.
func New(creds credentials.Provider, opts client.Options) (*Client, error) {
	c, err := client.New(creds, opts)
	if err != nil {
		return nil, err
	}
	return &Client{
		Client:   c,
		bitlinks: bitlinks.New(c),
	}, nil
}

// Create builds a Client with the default transport. options may carry
// OptionAPIBaseURL; other keys are ignored.
func Create(creds credentials.Provider, options map[string]string) (*Client, error) {
	var opts client.Options
	if baseURL, ok := options[OptionAPIBaseURL]; ok {
		opts.BaseURL = baseURL
	}
	return New(creds, opts)
}

// Bitlinks returns the bitlink operations facade.
func (c *Client) Bitlinks() *bitlinks.Service {
	return c.bitlinks
}
