package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dkotenko/newsmill/app/database"
	"github.com/dkotenko/newsmill/app/filter"
	"github.com/dkotenko/newsmill/app/publish"
	"github.com/dkotenko/newsmill/app/registry"
	"github.com/dkotenko/newsmill/app/sources"
	"github.com/dkotenko/newsmill/app/transform"
)

// intakeRegistry is the slice of the registry the orchestrator drives.
type intakeRegistry interface {
	Intake(drafts []sources.Draft) (int, error)
	GetUnprocessed(limit int) ([]database.RawItem, error)
	MarkProcessed(itemID string) error
}

type transformer interface {
	Transform(ctx context.Context, title, body, sourceURL string) (*transform.Draft, error)
}

type articlePublisher interface {
	Publish(ctx context.Context, article *database.Article) (*publish.Result, error)
}

// usageLinker back-fills the article id on usage records written while
// the article row did not exist yet.
type usageLinker interface {
	AttachArticle(articleID string, usageIDs []string) error
}

// RunSummary aggregates one pipeline run for callers and logs; the
// durable copy lives in the pipeline_runs table.
type RunSummary struct {
	RunID           string
	Status          string
	ItemsFound      int
	ItemsProcessed  int
	ArticlesCreated int
	Posted          int
	Errors          []string
	Duration        time.Duration
	TotalCost       float64
	TotalTokens     int
}

// Orchestrator sequences one pipeline run: fetch, intake, filter,
// transform, persist, publish. It is the only writer of pipeline run
// records and the only caller that marks raw items processed.
type Orchestrator struct {
	registry    intakeRegistry
	filterer    *filter.Filterer
	transformer transformer
	publisher   articlePublisher
	articleRepo database.ArticleRepository
	usageRepo   usageLinker
	runRepo     database.RunRepository
	batchSize   int
	fetch       func(ctx context.Context) ([]sources.Draft, []string)
}

func New(reg *registry.Registry, configCache *sources.ConfigCache, transformer *transform.Service, publisher *publish.Publisher, articleRepo database.ArticleRepository, usageRepo database.UsageRepository, runRepo database.RunRepository, httpUserAgent string, batchSize int) *Orchestrator {
	o := &Orchestrator{
		registry:    reg,
		filterer:    filter.NewFilterer(),
		transformer: transformer,
		publisher:   publisher,
		articleRepo: articleRepo,
		usageRepo:   usageRepo,
		runRepo:     runRepo,
		batchSize:   batchSize,
	}
	httpClient := &http.Client{}
	o.fetch = func(ctx context.Context) ([]sources.Draft, []string) {
		return fetchConfigured(ctx, configCache, reg, httpClient, httpUserAgent)
	}
	return o
}

// fetchConfigured builds one adapter per enabled source config and runs
// them concurrently. Config errors are reported as per-source failures,
// same as fetch errors.
func fetchConfigured(ctx context.Context, configCache *sources.ConfigCache, resolver sources.SourceResolver, httpClient *http.Client, userAgent string) ([]sources.Draft, []string) {
	var adapters []sources.Adapter
	var failures []string

	for _, config := range configCache.GetEnabledConfigs() {
		adapter, err := sources.NewAdapter(config, resolver, httpClient, userAgent)
		if err != nil {
			failures = append(failures, fmt.Sprintf("source %s: %v", config.Name, err))
			continue
		}
		adapters = append(adapters, adapter)
	}

	drafts, fetchFailures := sources.FetchAll(ctx, adapters)

	return drafts, append(failures, fetchFailures...)
}

// Run executes a full pipeline pass: fetch every enabled source, intake
// the drafts, then work through a bounded batch of unprocessed items.
// Partial failures are recorded in the run; only an error that escapes
// the sequence itself finalizes the run as failed.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	return o.run(ctx, true)
}

// ProcessRaw works through the existing unprocessed backlog without
// fetching any source.
func (o *Orchestrator) ProcessRaw(ctx context.Context) (*RunSummary, error) {
	return o.run(ctx, false)
}

func (o *Orchestrator) run(ctx context.Context, doFetch bool) (*RunSummary, error) {
	runID := uuid.New().String()
	if err := o.runRepo.Create(runID); err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}

	started := time.Now()
	summary := &RunSummary{RunID: runID}

	slog.Info("Pipeline run started", "run_id", runID, "fetch", doFetch)

	if err := o.execute(ctx, summary, doFetch); err != nil {
		summary.Status = database.RunStatusFailed
		summary.Errors = append(summary.Errors, err.Error())
		summary.Duration = time.Since(started)
		o.finalize(summary)
		return summary, err
	}

	summary.Status = database.RunStatusCompleted
	summary.Duration = time.Since(started)
	o.finalize(summary)

	slog.Info("Pipeline run completed", "run_id", runID,
		"items_found", summary.ItemsFound, "items_processed", summary.ItemsProcessed,
		"articles_created", summary.ArticlesCreated, "posted", summary.Posted,
		"errors", len(summary.Errors), "duration", summary.Duration.String())

	return summary, nil
}

func (o *Orchestrator) execute(ctx context.Context, summary *RunSummary, doFetch bool) error {
	if doFetch {
		drafts, failures := o.fetch(ctx)
		summary.ItemsFound = len(drafts)
		summary.Errors = append(summary.Errors, failures...)

		if _, err := o.registry.Intake(drafts); err != nil {
			return fmt.Errorf("intake failed: %w", err)
		}
	}

	items, err := o.registry.GetUnprocessed(o.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load unprocessed items: %w", err)
	}

	for _, item := range items {
		o.processItem(ctx, item, summary)
	}

	return nil
}

// processItem handles one raw item end to end. Whatever happens past the
// filter, the item is marked processed: transform and publish failures
// are recorded, not reprocessed, and publication is independently
// retryable through the republish sweep.
func (o *Orchestrator) processItem(ctx context.Context, item database.RawItem, summary *RunSummary) {
	defer func() {
		if err := o.registry.MarkProcessed(item.ID); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("item %s: failed to mark processed: %v", item.ID, err))
			return
		}
		summary.ItemsProcessed++
	}()

	if ok, reason := o.filterer.ShouldProcess(item); !ok {
		slog.Debug("Item filtered", "item_id", item.ID, "reason", reason)
		return
	}

	draft, err := o.transformer.Transform(ctx, item.Title, item.Description, item.URL)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("item %s: transform failed: %v", item.ID, err))
		return
	}

	summary.TotalCost += draft.Cost
	summary.TotalTokens += draft.PromptTokens + draft.CompletionTokens

	slug, err := o.uniqueSlug(draft.Slug)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("item %s: slug check failed: %v", item.ID, err))
		return
	}

	articleID, err := o.articleRepo.Insert(database.NewArticle{
		RawItemID:   item.ID,
		Slug:        slug,
		Title:       draft.Title,
		Summary:     draft.Summary,
		Body:        draft.Body,
		Difficulty:  draft.Difficulty,
		Importance:  draft.Importance,
		Tags:        draft.Tags,
		ReadingTime: draft.ReadingTime,
	})
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("item %s: failed to persist article: %v", item.ID, err))
		return
	}
	summary.ArticlesCreated++

	if o.usageRepo != nil && len(draft.UsageIDs) > 0 {
		if err := o.usageRepo.AttachArticle(articleID, draft.UsageIDs); err != nil {
			slog.Error("Failed to attach usage records", "article_id", articleID, "error", err)
		}
	}

	result, err := o.publisher.Publish(ctx, &database.Article{ID: articleID})
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("article %s: publish failed: %v", articleID, err))
		return
	}
	if result.Posted {
		summary.Posted++
	} else {
		slog.Info("Article not posted", "article_id", articleID, "reason", result.Reason)
	}
}

// uniqueSlug resolves slug collisions with a numeric suffix before
// insert so the unique index never fires in the happy path.
func (o *Orchestrator) uniqueSlug(slug string) (string, error) {
	candidate := slug
	for i := 2; ; i++ {
		exists, err := o.articleRepo.SlugExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", slug, i)
	}
}

// Republish sweeps unposted articles and retries publication. Used by
// the scheduled sweep and the manual telegram-post trigger.
func (o *Orchestrator) Republish(ctx context.Context, limit int) (int, error) {
	articles, err := o.articleRepo.GetUnposted(limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load unposted articles: %w", err)
	}

	posted := 0
	for i := range articles {
		result, err := o.publisher.Publish(ctx, &articles[i])
		if err != nil {
			slog.Error("Republish failed", "article_id", articles[i].ID, "error", err)
			continue
		}
		if result.Posted {
			posted++
		}
	}

	if len(articles) > 0 {
		slog.Info("Republish sweep completed", "candidates", len(articles), "posted", posted)
	}

	return posted, nil
}

func (o *Orchestrator) finalize(summary *RunSummary) {
	err := o.runRepo.Finalize(summary.RunID, database.RunUpdate{
		Status:         summary.Status,
		ItemsFound:     summary.ItemsFound,
		ItemsProcessed: summary.ItemsProcessed,
		Errors:         summary.Errors,
		DurationMs:     summary.Duration.Milliseconds(),
		TotalCost:      summary.TotalCost,
		TotalTokens:    summary.TotalTokens,
	})
	if err != nil {
		slog.Error("Failed to finalize pipeline run", "run_id", summary.RunID, "error", err)
	}
}
