package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// newsapiAdapter pulls candidate articles from a NewsAPI-compatible
// search endpoint.
type newsapiAdapter struct {
	config     *Config
	resolver   SourceResolver
	httpClient *http.Client
	userAgent  string
}

var _ Adapter = (*newsapiAdapter)(nil)

func NewNewsAPIAdapter(config *Config, resolver SourceResolver, httpClient *http.Client, userAgent string) Adapter {
	return &newsapiAdapter{
		config:     config,
		resolver:   resolver,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

type newsapiArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

type newsapiResponse struct {
	Status   string           `json:"status"`
	Message  string           `json:"message"`
	Articles []newsapiArticle `json:"articles"`
}

func (a *newsapiAdapter) Name() string {
	return a.config.Name
}

func (a *newsapiAdapter) Fetch(ctx context.Context) ([]Draft, error) {
	data, err := fetchURL(ctx, a.httpClient, a.buildURL(), a.userAgent, a.config.Settings.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search results: %w", err)
	}

	var response newsapiResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	if response.Status != "ok" {
		return nil, fmt.Errorf("search API error: %s", response.Message)
	}

	sourceID, err := a.resolver.Resolve(a.config.URL, KindNewsAPI, a.config.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}

	drafts := make([]Draft, 0, len(response.Articles))
	for _, article := range response.Articles {
		if len(drafts) >= a.config.Settings.MaxItems {
			break
		}

		draft := Draft{
			SourceID:    sourceID,
			Title:       strings.TrimSpace(article.Title),
			Description: strings.TrimSpace(article.Description),
			URL:         strings.TrimSpace(article.URL),
			ImageURL:    article.URLToImage,
		}

		if published, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
			draft.PublishedAt = &published
		}

		if !validDraft(draft) {
			continue
		}

		drafts = append(drafts, draft)
	}

	return drafts, nil
}

func (a *newsapiAdapter) buildURL() string {
	query := url.Values{}
	if a.config.Settings.Query != "" {
		query.Set("q", a.config.Settings.Query)
	}
	if a.config.Settings.APIKey != "" {
		query.Set("apiKey", a.config.Settings.APIKey)
	}
	query.Set("pageSize", fmt.Sprintf("%d", a.config.Settings.MaxItems))

	if len(query) == 0 {
		return a.config.URL
	}

	separator := "?"
	if strings.Contains(a.config.URL, "?") {
		separator = "&"
	}

	return a.config.URL + separator + query.Encode()
}
