package database

import (
	"fmt"
)

// RawItemRepo handles database operations for raw candidate items
type RawItemRepo struct {
	db *DB
}

var _ RawItemRepository = (*RawItemRepo)(nil)

func NewRawItemRepository(db *DB) *RawItemRepo {
	return &RawItemRepo{db: db}
}

// Insert stores a draft unless an item with the same URL (or the same
// source/external id pair) already exists. Returns true when a row was
// actually created.
func (r *RawItemRepo) Insert(draft RawItemDraft) (bool, error) {
	if draft.ExternalID != "" {
		var exists bool
		err := r.db.QueryRow(`
			SELECT EXISTS(
				SELECT 1 FROM raw_items
				WHERE source_id = $1 AND external_id = $2
			)
		`, draft.SourceID, draft.ExternalID).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("failed to check external id: %w", err)
		}
		if exists {
			return false, nil
		}
	}

	result, err := r.db.Exec(`
		INSERT INTO raw_items (source_id, external_id, title, description, url, image_url, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO NOTHING
	`, draft.SourceID, draft.ExternalID, draft.Title, draft.Description,
		draft.URL, draft.ImageURL, draft.PublishedAt)

	if err != nil {
		return false, fmt.Errorf("failed to insert raw item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// GetUnprocessed returns oldest-first unprocessed items up to limit.
func (r *RawItemRepo) GetUnprocessed(limit int) ([]RawItem, error) {
	rows, err := r.db.Query(`
		SELECT id, source_id, external_id, title, description, url, image_url,
		       published_at, processed, created_at
		FROM raw_items
		WHERE processed = false
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get unprocessed items: %w", err)
	}
	defer rows.Close()

	var items []RawItem
	for rows.Next() {
		var item RawItem
		err := rows.Scan(
			&item.ID, &item.SourceID, &item.ExternalID, &item.Title, &item.Description,
			&item.URL, &item.ImageURL, &item.PublishedAt, &item.Processed, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating raw item rows: %w", err)
	}

	return items, nil
}

// MarkProcessed flags an item as handled. Marking an already-processed
// item is a no-op.
func (r *RawItemRepo) MarkProcessed(itemID string) error {
	_, err := r.db.Exec(`
		UPDATE raw_items
		SET processed = true
		WHERE id = $1
	`, itemID)

	if err != nil {
		return fmt.Errorf("failed to mark item processed: %w", err)
	}

	return nil
}

func (r *RawItemRepo) GetCounts() (total int, unprocessed int, err error) {
	err = r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN processed = false THEN 1 ELSE 0 END), 0) as unprocessed
		FROM raw_items
	`).Scan(&total, &unprocessed)

	if err != nil {
		return 0, 0, fmt.Errorf("failed to get raw item counts: %w", err)
	}

	return total, unprocessed, nil
}
