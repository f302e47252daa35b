package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/playlistr/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// Create はコメントを作成する。shared_atはDB側で採番され、commentに書き戻される。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (comment_id, post_id, user_id, comment)
		 VALUES ($1, $2, $3, $4)
		 RETURNING shared_at`,
		comment.CommentID, comment.PostID, comment.UserID, comment.Comment,
	).Scan(&comment.SharedAt)
	if err != nil {
		return fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByPostID は投稿のコメントをshared_at昇順（古い順）で返す。
func (r *PostgresCommentRepo) ListByPostID(ctx context.Context, postID string) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT comment_id, post_id, user_id, comment, shared_at
		 FROM comments
		 WHERE post_id = $1
		 ORDER BY shared_at ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		comment := &model.Comment{}
		if err := rows.Scan(&comment.CommentID, &comment.PostID, &comment.UserID, &comment.Comment, &comment.SharedAt); err != nil {
			return nil, fmt.Errorf("コメントの読み取りに失敗しました: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメントの走査に失敗しました: %w", err)
	}
	return comments, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
