package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dkotenko/newsmill/app/database"
)

const (
	defaultAPIBase     = "https://api.telegram.org"
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
	requestTimeout     = 15 * time.Second
)

// Result describes the outcome of one publish attempt. Reason is set
// whenever Posted is false.
type Result struct {
	Posted    bool
	MessageID int64
	Reason    string
}

// Publisher posts canonical articles to the Telegram channel. Publishing
// never returns a hard error for channel-side failures: the article stays
// unposted and the republish sweep picks it up later.
type Publisher struct {
	botToken    string
	chatID      string
	siteURL     string
	articleRepo database.ArticleRepository
	client      *http.Client
	apiBase     string
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration)
}

func NewPublisher(botToken, chatID, siteURL string, articleRepo database.ArticleRepository) *Publisher {
	return &Publisher{
		botToken:    botToken,
		chatID:      chatID,
		siteURL:     strings.TrimRight(siteURL, "/"),
		articleRepo: articleRepo,
		client:      &http.Client{Timeout: requestTimeout},
		apiBase:     defaultAPIBase,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		sleep:       time.Sleep,
	}
}

// Publish posts one article to the channel and marks it posted on
// success. The posted flag is re-read first so duplicate triggers for
// the same article collapse to a no-op without a network call.
func (p *Publisher) Publish(ctx context.Context, article *database.Article) (*Result, error) {
	current, err := p.articleRepo.GetByID(article.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check article %s: %w", article.ID, err)
	}
	if current == nil {
		return nil, fmt.Errorf("article %s not found", article.ID)
	}
	if current.TelegramPosted {
		return &Result{Posted: false, Reason: "already posted"}, nil
	}

	if p.botToken == "" || p.chatID == "" {
		slog.Warn("Telegram publishing not configured, leaving article unposted", "article_id", article.ID)
		return &Result{Posted: false, Reason: "telegram not configured"}, nil
	}

	messageID, reason := p.send(ctx, renderMessage(current, p.siteURL))
	if reason != "" {
		return &Result{Posted: false, Reason: reason}, nil
	}

	if err := p.articleRepo.MarkPosted(article.ID, messageID); err != nil {
		return nil, fmt.Errorf("failed to mark article %s posted: %w", article.ID, err)
	}

	slog.Info("Published article", "article_id", article.ID, "slug", current.Slug, "message_id", messageID)

	return &Result{Posted: true, MessageID: messageID}, nil
}

// send delivers the message via the Bot API, retrying rate-limit
// responses with backoff up to the attempt ceiling. It returns a
// non-empty reason string instead of an error on failure.
func (p *Publisher) send(ctx context.Context, text string) (int64, string) {
	var reason string
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.baseDelay * time.Duration(1<<uint(attempt-1))
			slog.Warn("Retrying telegram send", "attempt", attempt+1, "delay", delay.String(), "reason", reason)
			p.sleep(delay)
		}

		messageID, retryable, err := p.sendOnce(ctx, text)
		if err == nil {
			return messageID, ""
		}

		reason = err.Error()
		if !retryable {
			return 0, reason
		}
	}

	return 0, fmt.Sprintf("giving up after %d attempts: %s", p.maxAttempts, reason)
}

func (p *Publisher) sendOnce(ctx context.Context, text string) (messageID int64, retryable bool, err error) {
	payload, err := json.Marshal(map[string]any{
		"chat_id":    p.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", p.apiBase, p.botToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return 0, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, true, fmt.Errorf("rate limited by telegram")
	}
	if resp.StatusCode >= 500 {
		return 0, true, fmt.Errorf("telegram server error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("telegram error: %s", resp.Status)
	}

	var parsed struct {
		OK     bool `json:"ok"`
		Result struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, false, fmt.Errorf("failed to parse telegram response: %w", err)
	}
	if !parsed.OK {
		return 0, false, fmt.Errorf("telegram rejected message: %s", parsed.Description)
	}

	return parsed.Result.MessageID, false, nil
}
