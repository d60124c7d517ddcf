package bitlinks

import "time"

// Deeplink routes a bitlink into a mobile app. It is sent as-is in Create.
type Deeplink struct {
	AppID       string `json:"app_id,omitempty"`
	AppURIPath  string `json:"app_uri_path,omitempty"`
	InstallURL  string `json:"install_url,omitempty"`
	InstallType string `json:"install_type,omitempty"`
}

type References struct {
	Group string `json:"group"`
}

// Bitlink is the body returned by Create, Shorten, Get and Update.
// Decode it with client.Response.Decode.
type Bitlink struct {
	ID             string     `json:"id"`
	Link           string     `json:"link"`
	LongURL        string     `json:"long_url"`
	Title          string     `json:"title"`
	Archived       bool       `json:"archived"`
	CreatedAt      time.Time  `json:"created_at"`
	CreatedBy      string     `json:"created_by"`
	CustomBitlinks []string   `json:"custom_bitlinks"`
	Tags           []string   `json:"tags"`
	Deeplinks      []Deeplink `json:"deeplinks"`
	References     References `json:"references"`
}

// ExpandedBitlink is the body returned by Expand.
type ExpandedBitlink struct {
	ID        string    `json:"id"`
	Link      string    `json:"link"`
	LongURL   string    `json:"long_url"`
	CreatedAt time.Time `json:"created_at"`
}

type ClickCount struct {
	Clicks int    `json:"clicks"`
	Date   string `json:"date"`
}

// LinkClicks is the body returned by Clicks.
type LinkClicks struct {
	Unit          string       `json:"unit"`
	Units         int          `json:"units"`
	UnitReference string       `json:"unit_reference"`
	LinkClicks    []ClickCount `json:"link_clicks"`
}

// ClicksSummary is the body returned by ClicksSummary.
type ClicksSummary struct {
	Unit          string `json:"unit"`
	Units         int    `json:"units"`
	UnitReference string `json:"unit_reference"`
	TotalClicks   int    `json:"total_clicks"`
}

type MetricValue struct {
	Value  string `json:"value"`
	Clicks int    `json:"clicks"`
}

// Metrics is the body returned by the referrer, referring domain and
// country endpoints.
type Metrics struct {
	Unit          string        `json:"unit"`
	Units         int           `json:"units"`
	Facet         string        `json:"facet"`
	UnitReference string        `json:"unit_reference"`
	Metrics       []MetricValue `json:"metrics"`
}

type DomainReferrers struct {
	Network   string        `json:"network"`
	Referrers []MetricValue `json:"referrers"`
}

// ReferrersByDomain is the body returned by MetricsReferrersByDomain.
type ReferrersByDomain struct {
	Unit              string            `json:"unit"`
	Units             int               `json:"units"`
	Facet             string            `json:"facet"`
	UnitReference     string            `json:"unit_reference"`
	ReferrersByDomain []DomainReferrers `json:"referrers_by_domain"`
}
