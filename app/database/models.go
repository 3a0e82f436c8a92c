package database

import (
	"time"
)

type Source struct {
	ID            string // Database UUID
	URL           string // Provider endpoint, natural key
	Name          string
	Kind          string // rss, newsapi, scraper
	Enabled       bool
	LastFetchedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RawItem struct {
	ID          string
	SourceID    string
	ExternalID  string
	Title       string
	Description string
	URL         string
	ImageURL    string
	PublishedAt *time.Time
	Processed   bool
	CreatedAt   time.Time
}

type Article struct {
	ID                string
	RawItemID         string
	Slug              string
	Title             string
	Summary           string
	Body              string
	Difficulty        string // easy, medium, hard
	Importance        string // low, normal, high, breaking
	Tags              []string
	ReadingTime       int // minutes
	TelegramPosted    bool
	TelegramMessageID int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type UsageRecord struct {
	ID               string
	ArticleID        *string
	Model            string
	Operation        string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	CreatedAt        time.Time
}

// Pipeline run statuses. Cancelled is reserved for operator action and
// is never set by the orchestrator itself.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

type PipelineRun struct {
	ID             string
	Status         string
	StartedAt      time.Time
	CompletedAt    *time.Time
	ItemsFound     int
	ItemsProcessed int
	ErrorCount     int
	Errors         []string
	DurationMs     int64
	TotalCost      float64
	TotalTokens    int
}
