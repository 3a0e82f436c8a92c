package database

import (
	"fmt"

	"github.com/lib/pq"
)

// UsageRepo handles the append-only log of charged provider calls
type UsageRepo struct {
	db *DB
}

var _ UsageRepository = (*UsageRepo)(nil)

func NewUsageRepository(db *DB) *UsageRepo {
	return &UsageRepo{db: db}
}

func (r *UsageRepo) Insert(record NewUsageRecord) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO usage_records (article_id, model, operation, prompt_tokens, completion_tokens, cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, record.ArticleID, record.Model, record.Operation,
		record.PromptTokens, record.CompletionTokens, record.Cost).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to insert usage record: %w", err)
	}

	return id, nil
}

// AttachArticle back-fills the article ownership link on usage records
// written before the article row existed.
func (r *UsageRepo) AttachArticle(articleID string, usageIDs []string) error {
	if len(usageIDs) == 0 {
		return nil
	}

	_, err := r.db.Exec(`
		UPDATE usage_records
		SET article_id = $1
		WHERE id = ANY($2)
	`, articleID, pq.Array(usageIDs))

	if err != nil {
		return fmt.Errorf("failed to attach usage records to article: %w", err)
	}

	return nil
}

func (r *UsageRepo) GetRecent(limit int) ([]UsageRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, article_id, model, operation, prompt_tokens, completion_tokens, cost, created_at
		FROM usage_records
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage records: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var record UsageRecord
		err := rows.Scan(
			&record.ID, &record.ArticleID, &record.Model, &record.Operation,
			&record.PromptTokens, &record.CompletionTokens, &record.Cost, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage record row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage record rows: %w", err)
	}

	return records, nil
}
