// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/playlistr/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindBySpotifyUserID は外部ユーザーIDでユーザーを検索する。見つからない場合はnilを返す。
	FindBySpotifyUserID(ctx context.Context, spotifyUserID string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はサインイン時に取得した表示名とアバターURLを更新する。
	UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PostRepository は共有投稿の永続化インターフェース。
// 投稿は作成後不変であり、更新・削除の操作は提供しない。
type PostRepository interface {
	// Create は投稿を作成する。shared_atはDB側で採番され、postに書き戻される。
	Create(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// ListAll は全投稿をshared_at降順（新しい順）で返す。
	ListAll(ctx context.Context) ([]*model.Post, error)

	// ListByUserID は指定外部ユーザーIDの投稿をshared_at降順で返す。
	ListByUserID(ctx context.Context, spotifyUserID string) ([]*model.Post, error)
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。shared_atはDB側で採番され、commentに書き戻される。
	// 挿入された行が返されることで、クライアントは再取得なしにスレッドへ追記できる。
	Create(ctx context.Context, comment *model.Comment) error

	// ListByPostID は投稿のコメントをshared_at昇順（古い順）で返す。
	ListByPostID(ctx context.Context, postID string) ([]*model.Comment, error)
}

// NewsItemRepository は音楽ニュース記事の永続化インターフェース。
type NewsItemRepository interface {
	// Upsert は記事をlinkで冪等にUPSERTする。戻り値は新規挿入ならtrue。
	Upsert(ctx context.Context, item *model.NewsItem) (bool, error)

	// ListRecent は記事をpublished_at降順で最大limit件返す。
	ListRecent(ctx context.Context, limit int) ([]*model.NewsItem, error)

	// DeleteOlderThan は指定日時より古い記事を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
