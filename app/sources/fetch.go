package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// fetchURL downloads a provider endpoint with its own bounded timeout so
// a hung provider cannot stall the whole batch.
func fetchURL(ctx context.Context, client *http.Client, url, userAgent string, timeoutSec int) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return readBody(resp)
}

func readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// validDraft applies the provider-independent validity filter: drop
// items with missing title/URL and provider placeholders for retracted
// content.
func validDraft(draft Draft) bool {
	if draft.Title == "" || draft.URL == "" {
		return false
	}
	if strings.EqualFold(draft.Title, "[removed]") {
		return false
	}
	return true
}

// NewAdapter builds the adapter matching the config's kind.
func NewAdapter(config *Config, resolver SourceResolver, httpClient *http.Client, userAgent string) (Adapter, error) {
	switch config.Kind {
	case KindRSS:
		return NewRSSAdapter(config, resolver, httpClient, userAgent), nil
	case KindNewsAPI:
		return NewNewsAPIAdapter(config, resolver, httpClient, userAgent), nil
	case KindScraper:
		return NewScraperAdapter(config, resolver, httpClient, userAgent), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", config.Kind)
	}
}

// FetchAll runs every adapter concurrently. One adapter's failure never
// aborts the others; failures come back as per-source messages alongside
// the merged drafts.
func FetchAll(ctx context.Context, adapters []Adapter) ([]Draft, []string) {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var drafts []Draft
	var failures []string

	for _, adapter := range adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()

			fetched, err := a.Fetch(ctx)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				slog.Warn("Source fetch failed", "source", a.Name(), "error", err)
				failures = append(failures, fmt.Sprintf("source %s: %v", a.Name(), err))
				return
			}

			slog.Debug("Source fetch completed", "source", a.Name(), "items", len(fetched))
			drafts = append(drafts, fetched...)
		}(adapter)
	}

	wg.Wait()

	return drafts, failures
}
