package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/playlistr/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は投稿を作成する。shared_atはDB側で採番され、postに書き戻される。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO posts (id, user_id, spotify_id, type, caption, tags)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING shared_at`,
		post.ID, post.UserID, post.SpotifyID, post.Type, post.Caption, post.Tags,
	).Scan(&post.SharedAt)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, spotify_id, type, caption, tags, shared_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.UserID, &post.SpotifyID, &post.Type, &post.Caption, &post.Tags, &post.SharedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}

	return post, nil
}

// ListAll は全投稿をshared_at降順（新しい順）で返す。
func (r *PostgresPostRepo) ListAll(ctx context.Context) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, spotify_id, type, caption, tags, shared_at
		 FROM posts
		 ORDER BY shared_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListByUserID は指定外部ユーザーIDの投稿をshared_at降順で返す。
func (r *PostgresPostRepo) ListByUserID(ctx context.Context, spotifyUserID string) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, spotify_id, type, caption, tags, shared_at
		 FROM posts
		 WHERE user_id = $1
		 ORDER BY shared_at DESC`,
		spotifyUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザー投稿の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]*model.Post, error) {
	var posts []*model.Post
	for rows.Next() {
		post := &model.Post{}
		if err := rows.Scan(&post.ID, &post.UserID, &post.SpotifyID, &post.Type, &post.Caption, &post.Tags, &post.SharedAt); err != nil {
			return nil, fmt.Errorf("投稿の読み取りに失敗しました: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿の走査に失敗しました: %w", err)
	}
	return posts, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
