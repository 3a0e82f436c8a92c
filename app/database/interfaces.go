package database

import (
	"time"
)

// RawItemDraft is a candidate article as returned by a source adapter,
// before intake dedup.
type RawItemDraft struct {
	SourceID    string
	ExternalID  string
	Title       string
	Description string
	URL         string
	ImageURL    string
	PublishedAt *time.Time
}

// NewArticle carries the transformed article for insertion.
type NewArticle struct {
	RawItemID   string
	Slug        string
	Title       string
	Summary     string
	Body        string
	Difficulty  string
	Importance  string
	Tags        []string
	ReadingTime int
}

// NewUsageRecord carries one charged provider call for the append-only
// usage log.
type NewUsageRecord struct {
	ArticleID        *string
	Model            string
	Operation        string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// RunUpdate finalizes a pipeline run record.
type RunUpdate struct {
	Status         string
	ItemsFound     int
	ItemsProcessed int
	Errors         []string
	DurationMs     int64
	TotalCost      float64
	TotalTokens    int
}

type SourceRepository interface {
	GetOrCreate(url, kind, name string) (string, error)
	Touch(sourceID string) error
	GetByURL(url string) (*Source, error)
	GetAll() ([]Source, error)
	GetCount() (int, error)
}

type RawItemRepository interface {
	Insert(draft RawItemDraft) (bool, error)
	GetUnprocessed(limit int) ([]RawItem, error)
	MarkProcessed(itemID string) error
	GetCounts() (total int, unprocessed int, err error)
}

type ArticleRepository interface {
	Insert(article NewArticle) (string, error)
	GetByID(articleID string) (*Article, error)
	SlugExists(slug string) (bool, error)
	MarkPosted(articleID string, messageID int64) error
	GetUnposted(limit int) ([]Article, error)
	GetCount() (int, error)
}

type UsageRepository interface {
	Insert(record NewUsageRecord) (string, error)
	AttachArticle(articleID string, usageIDs []string) error
	GetRecent(limit int) ([]UsageRecord, error)
}

type RunRepository interface {
	Create(runID string) error
	Finalize(runID string, update RunUpdate) error
	GetByID(runID string) (*PipelineRun, error)
	GetRecent(limit int) ([]PipelineRun, error)
}
