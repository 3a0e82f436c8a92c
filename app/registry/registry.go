package registry

import (
	"fmt"
	"log/slog"

	"github.com/dkotenko/newsmill/app/database"
	"github.com/dkotenko/newsmill/app/sources"
)

// Registry is the single intake boundary for raw items. Adapters resolve
// their source rows through it and the orchestrator feeds drafts into it;
// nothing else inserts raw items.
type Registry struct {
	sourceRepo database.SourceRepository
	itemRepo   database.RawItemRepository
}

var _ sources.SourceResolver = (*Registry)(nil)

func New(sourceRepo database.SourceRepository, itemRepo database.RawItemRepository) *Registry {
	return &Registry{
		sourceRepo: sourceRepo,
		itemRepo:   itemRepo,
	}
}

// Resolve implements sources.SourceResolver: get-or-create by URL, then
// record the fetch attempt. Safe under concurrent first creation because
// the upsert is a single statement.
func (r *Registry) Resolve(url, kind, name string) (string, error) {
	sourceID, err := r.sourceRepo.GetOrCreate(url, kind, name)
	if err != nil {
		return "", fmt.Errorf("failed to get or create source: %w", err)
	}

	if err := r.sourceRepo.Touch(sourceID); err != nil {
		return "", fmt.Errorf("failed to record fetch attempt: %w", err)
	}

	return sourceID, nil
}

// Intake deduplicates and stores drafts. Drafts whose URL or external id
// already exists are silently skipped; the returned count covers rows
// actually created.
func (r *Registry) Intake(drafts []sources.Draft) (int, error) {
	saved := 0
	for _, draft := range drafts {
		created, err := r.itemRepo.Insert(database.RawItemDraft{
			SourceID:    draft.SourceID,
			ExternalID:  draft.ExternalID,
			Title:       draft.Title,
			Description: draft.Description,
			URL:         draft.URL,
			ImageURL:    draft.ImageURL,
			PublishedAt: draft.PublishedAt,
		})
		if err != nil {
			return saved, fmt.Errorf("failed to intake draft %s: %w", draft.URL, err)
		}
		if created {
			saved++
		}
	}

	slog.Debug("Intake completed", "drafts", len(drafts), "saved", saved)

	return saved, nil
}

// GetUnprocessed returns oldest-first unprocessed items up to limit.
func (r *Registry) GetUnprocessed(limit int) ([]database.RawItem, error) {
	return r.itemRepo.GetUnprocessed(limit)
}

// MarkProcessed flags a raw item as handled. Idempotent.
func (r *Registry) MarkProcessed(itemID string) error {
	return r.itemRepo.MarkProcessed(itemID)
}
