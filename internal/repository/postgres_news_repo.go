package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/playlistr/internal/model"
)

// PostgresNewsItemRepo はPostgreSQLを使用したニュース記事リポジトリ。
type PostgresNewsItemRepo struct {
	db *sql.DB
}

// NewPostgresNewsItemRepo はPostgresNewsItemRepoを生成する。
func NewPostgresNewsItemRepo(db *sql.DB) *PostgresNewsItemRepo {
	return &PostgresNewsItemRepo{db: db}
}

// Upsert は記事をlinkで冪等にUPSERTする。戻り値は新規挿入ならtrue。
func (r *PostgresNewsItemRepo) Upsert(ctx context.Context, item *model.NewsItem) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO news_items (id, source_title, title, link, summary, published_at, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (link) DO UPDATE SET
		     source_title = EXCLUDED.source_title,
		     title        = EXCLUDED.title,
		     summary      = EXCLUDED.summary,
		     published_at = EXCLUDED.published_at,
		     fetched_at   = EXCLUDED.fetched_at,
		     updated_at   = now()
		 RETURNING (xmax = 0)`,
		item.ID, item.SourceTitle, item.Title, item.Link, item.Summary, item.PublishedAt, item.FetchedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("記事のUPSERTに失敗しました: %w", err)
	}
	return inserted, nil
}

// ListRecent は記事をpublished_at降順で最大limit件返す。
func (r *PostgresNewsItemRepo) ListRecent(ctx context.Context, limit int) ([]*model.NewsItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_title, title, link, summary, published_at, fetched_at, created_at, updated_at
		 FROM news_items
		 ORDER BY published_at DESC NULLS LAST
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.NewsItem
	for rows.Next() {
		item := &model.NewsItem{}
		if err := rows.Scan(&item.ID, &item.SourceTitle, &item.Title, &item.Link, &item.Summary, &item.PublishedAt, &item.FetchedAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("記事の読み取りに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事の走査に失敗しました: %w", err)
	}
	return items, nil
}

// DeleteOlderThan は指定日時より古い記事を削除し、削除件数を返す。
func (r *PostgresNewsItemRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM news_items WHERE fetched_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("古い記事の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// compile-time interface check
var _ NewsItemRepository = (*PostgresNewsItemRepo)(nil)
