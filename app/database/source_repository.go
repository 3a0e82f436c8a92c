package database

import (
	"database/sql"
	"fmt"
)

// SourceRepo handles database operations for external news sources
type SourceRepo struct {
	db *DB
}

var _ SourceRepository = (*SourceRepo)(nil)

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// GetOrCreate returns the id of the source with the given URL, creating
// it on first use. The upsert is a single statement so concurrent first
// creation of the same URL resolves to one row.
func (r *SourceRepo) GetOrCreate(url, kind, name string) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO sources (url, kind, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, url, kind, name).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to get or create source: %w", err)
	}

	return id, nil
}

// Touch records a fetch attempt against the source.
func (r *SourceRepo) Touch(sourceID string) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET last_fetched_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, sourceID)

	if err != nil {
		return fmt.Errorf("failed to touch source: %w", err)
	}

	return nil
}

func (r *SourceRepo) GetByURL(url string) (*Source, error) {
	var source Source
	err := r.db.QueryRow(`
		SELECT id, url, name, kind, enabled, last_fetched_at, created_at, updated_at
		FROM sources
		WHERE url = $1
	`, url).Scan(
		&source.ID, &source.URL, &source.Name, &source.Kind, &source.Enabled,
		&source.LastFetchedAt, &source.CreatedAt, &source.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source by URL: %w", err)
	}

	return &source, nil
}

func (r *SourceRepo) GetAll() ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT id, url, name, kind, enabled, last_fetched_at, created_at, updated_at
		FROM sources
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var source Source
		err := rows.Scan(
			&source.ID, &source.URL, &source.Name, &source.Kind, &source.Enabled,
			&source.LastFetchedAt, &source.CreatedAt, &source.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SourceRepo) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
