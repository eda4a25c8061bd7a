package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chand1012/personal-site/internal/database"
	"github.com/chand1012/personal-site/internal/model"
)

const (
	selectEditedAtSQL = `SELECT edited_at FROM articles WHERE id = $1`

	upsertArticleSQL = `
		INSERT INTO articles (
			id, title, description, canonical_url, published_at, edited_at,
			reading_time_minutes, tags, content, author, organization
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			canonical_url = EXCLUDED.canonical_url,
			published_at = EXCLUDED.published_at,
			edited_at = EXCLUDED.edited_at,
			reading_time_minutes = EXCLUDED.reading_time_minutes,
			tags = EXCLUDED.tags,
			content = COALESCE(NULLIF(EXCLUDED.content, ''), articles.content),
			author = EXCLUDED.author,
			organization = EXCLUDED.organization,
			synced_at = NOW()`
)

// PostgresArticleStore keeps articles in the articles table.
type PostgresArticleStore struct {
	db database.DBTX
}

// NewPostgresArticleStore creates a store over db.
func NewPostgresArticleStore(db database.DBTX) *PostgresArticleStore {
	return &PostgresArticleStore{db: db}
}

func (s *PostgresArticleStore) EditedAt(ctx context.Context, id int64) (time.Time, bool, error) {
	var editedAt time.Time
	err := s.db.QueryRow(ctx, selectEditedAtSQL, id).Scan(&editedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return editedAt, true, nil
}

// Upsert inserts the article or replaces the stored copy. An empty Content
// keeps the previously stored body.
func (s *PostgresArticleStore) Upsert(ctx context.Context, a model.Article) error {
	author, err := json.Marshal(a.Author)
	if err != nil {
		return fmt.Errorf("marshal author: %w", err)
	}
	org, err := json.Marshal(a.Organization)
	if err != nil {
		return fmt.Errorf("marshal organization: %w", err)
	}

	_, err = s.db.Exec(ctx, upsertArticleSQL,
		a.ID, a.Title, a.Description, a.CanonicalURL, a.PublishedAt, a.EditedAt,
		a.ReadingTimeMinutes, a.Tags, a.Content, author, org,
	)
	return err
}
