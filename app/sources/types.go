package sources

import (
	"context"
	"time"
)

// Source kinds
const (
	KindRSS     = "rss"
	KindNewsAPI = "newsapi"
	KindScraper = "scraper"
)

// Draft is one candidate article as returned by a provider, before
// intake dedup.
type Draft struct {
	SourceID    string
	ExternalID  string
	Title       string
	Description string
	URL         string
	ImageURL    string
	PublishedAt *time.Time
}

// Adapter is the uniform contract every provider implements. Fetch
// returns validated drafts with a resolved source reference; adapters
// never write to the database themselves.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]Draft, error)
}

// SourceResolver resolves a provider endpoint to its source row,
// creating the row on first successful fetch and recording the fetch
// timestamp. Implemented by the ingestion registry.
type SourceResolver interface {
	Resolve(url, kind, name string) (string, error)
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Kind     string         `yaml:"kind"`
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled  bool `yaml:"enabled"`
	Timeout  int  `yaml:"timeout"` // seconds
	MaxItems int  `yaml:"max_items"`

	// newsapi settings
	APIKey string `yaml:"api_key"`
	Query  string `yaml:"query"`

	// scraper settings
	LinkSelector string `yaml:"link_selector"`
	ExtractBody  bool   `yaml:"extract_body"`
}
