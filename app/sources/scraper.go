package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// scraperAdapter pulls candidate articles from an HTML index page by
// following links matched by a configured selector. When extract_body is
// set, the linked page's readable content is carried as the description
// so the transformer has a full-content prompt to work with.
type scraperAdapter struct {
	config     *Config
	resolver   SourceResolver
	httpClient *http.Client
	userAgent  string
}

var _ Adapter = (*scraperAdapter)(nil)

func NewScraperAdapter(config *Config, resolver SourceResolver, httpClient *http.Client, userAgent string) Adapter {
	return &scraperAdapter{
		config:     config,
		resolver:   resolver,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (a *scraperAdapter) Name() string {
	return a.config.Name
}

func (a *scraperAdapter) Fetch(ctx context.Context) ([]Draft, error) {
	data, err := fetchURL(ctx, a.httpClient, a.config.URL, a.userAgent, a.config.Settings.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index page: %w", err)
	}

	sourceID, err := a.resolver.Resolve(a.config.URL, KindScraper, a.config.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}

	base, err := url.Parse(a.config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source URL: %w", err)
	}

	var drafts []Draft
	seen := make(map[string]bool)

	doc.Find(a.config.Settings.LinkSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(drafts) >= a.config.Settings.MaxItems {
			return false
		}

		href, ok := sel.Attr("href")
		if !ok {
			return true
		}

		link, err := base.Parse(href)
		if err != nil {
			return true
		}
		absolute := link.String()

		if seen[absolute] {
			return true
		}
		seen[absolute] = true

		draft := Draft{
			SourceID: sourceID,
			Title:    strings.TrimSpace(sel.Text()),
			URL:      absolute,
		}

		if !validDraft(draft) {
			return true
		}

		if a.config.Settings.ExtractBody {
			if body := a.extractBody(ctx, absolute); body != "" {
				draft.Description = body
			}
		}

		drafts = append(drafts, draft)
		return true
	})

	return drafts, nil
}

// extractBody downloads the linked article page and runs readability
// over it. Extraction failure is not fatal: the draft still carries the
// link and title.
func (a *scraperAdapter) extractBody(ctx context.Context, articleURL string) string {
	data, err := fetchURL(ctx, a.httpClient, articleURL, a.userAgent, a.config.Settings.Timeout)
	if err != nil {
		slog.Debug("Article page fetch failed", "source", a.config.Name, "url", articleURL, "error", err)
		return ""
	}

	parsed, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsed)
	if err != nil {
		slog.Debug("Content extraction failed", "source", a.config.Name, "url", articleURL, "error", err)
		return ""
	}

	return strings.TrimSpace(article.TextContent)
}
