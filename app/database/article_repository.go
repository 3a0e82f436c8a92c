package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// ArticleRepo handles database operations for canonical articles
type ArticleRepo struct {
	db *DB
}

var _ ArticleRepository = (*ArticleRepo)(nil)

func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) Insert(article NewArticle) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO articles (raw_item_id, slug, title, summary, body,
		                      difficulty, importance, tags, reading_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, article.RawItemID, article.Slug, article.Title, article.Summary, article.Body,
		article.Difficulty, article.Importance, pq.Array(article.Tags), article.ReadingTime).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to insert article: %w", err)
	}

	return id, nil
}

func (r *ArticleRepo) GetByID(articleID string) (*Article, error) {
	var article Article
	err := r.db.QueryRow(`
		SELECT id, raw_item_id, slug, title, summary, body, difficulty, importance,
		       COALESCE(tags, '{}'), reading_time, telegram_posted, telegram_message_id,
		       created_at, updated_at
		FROM articles
		WHERE id = $1
	`, articleID).Scan(
		&article.ID, &article.RawItemID, &article.Slug, &article.Title, &article.Summary,
		&article.Body, &article.Difficulty, &article.Importance, pq.Array(&article.Tags),
		&article.ReadingTime, &article.TelegramPosted, &article.TelegramMessageID,
		&article.CreatedAt, &article.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by id: %w", err)
	}

	return &article, nil
}

func (r *ArticleRepo) SlugExists(slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1)
	`, slug).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}

	return exists, nil
}

// MarkPosted flips the posted flag and records the channel message id in
// a single statement. The flag never reverts.
func (r *ArticleRepo) MarkPosted(articleID string, messageID int64) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET telegram_posted = true, telegram_message_id = $2, updated_at = NOW()
		WHERE id = $1 AND telegram_posted = false
	`, articleID, messageID)

	if err != nil {
		return fmt.Errorf("failed to mark article posted: %w", err)
	}

	return nil
}

// GetUnposted returns articles that were persisted but never reached the
// channel, oldest first. Used by the republish sweep.
func (r *ArticleRepo) GetUnposted(limit int) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT id, raw_item_id, slug, title, summary, body, difficulty, importance,
		       COALESCE(tags, '{}'), reading_time, telegram_posted, telegram_message_id,
		       created_at, updated_at
		FROM articles
		WHERE telegram_posted = false
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get unposted articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var article Article
		err := rows.Scan(
			&article.ID, &article.RawItemID, &article.Slug, &article.Title, &article.Summary,
			&article.Body, &article.Difficulty, &article.Importance, pq.Array(&article.Tags),
			&article.ReadingTime, &article.TelegramPosted, &article.TelegramMessageID,
			&article.CreatedAt, &article.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepo) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}
