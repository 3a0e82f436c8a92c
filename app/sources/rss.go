package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
)

// rssAdapter pulls candidate articles from an RSS/Atom feed.
type rssAdapter struct {
	config     *Config
	resolver   SourceResolver
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

var _ Adapter = (*rssAdapter)(nil)

func NewRSSAdapter(config *Config, resolver SourceResolver, httpClient *http.Client, userAgent string) Adapter {
	return &rssAdapter{
		config:     config,
		resolver:   resolver,
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

func (a *rssAdapter) Name() string {
	return a.config.Name
}

func (a *rssAdapter) Fetch(ctx context.Context) ([]Draft, error) {
	data, err := fetchURL(ctx, a.httpClient, a.config.URL, a.userAgent, a.config.Settings.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	sourceID, err := a.resolver.Resolve(a.config.URL, KindRSS, a.config.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}

	drafts := make([]Draft, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(drafts) >= a.config.Settings.MaxItems {
			break
		}

		description := item.Content
		if description == "" {
			description = item.Description
		}
		draft := Draft{
			SourceID:    sourceID,
			ExternalID:  item.GUID,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(description),
			URL:         strings.TrimSpace(item.Link),
			PublishedAt: item.PublishedParsed,
		}
		if item.Image != nil {
			draft.ImageURL = item.Image.URL
		}

		if !validDraft(draft) {
			continue
		}

		drafts = append(drafts, draft)
	}

	return drafts, nil
}
