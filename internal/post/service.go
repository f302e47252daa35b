// Package post は曲/プレイリスト共有投稿とコメントのビジネスロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hitoshi/playlistr/internal/model"
	"github.com/hitoshi/playlistr/internal/repository"
	"github.com/hitoshi/playlistr/internal/security"
)

// Service は投稿・コメントに関するビジネスロジックを提供する。
type Service struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	sanitizer   security.ContentSanitizerService
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
) *Service {
	return &Service{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		sanitizer:   sanitizer,
		logger:      logger,
	}
}

// SharePostInput は投稿作成の入力。
type SharePostInput struct {
	SpotifyID string
	Type      string
	Caption   string
	Tags      string
}

// SharePost は共有投稿を作成する。
// spotifyUserIDは認証済みユーザーの外部ユーザーID。
// キャプションとタグはHTMLタグを除去した上で保存する。
// SpotifyIDの実在性は検証しない。投稿対象は検索結果からの選択を前提とする。
func (s *Service) SharePost(ctx context.Context, spotifyUserID string, input SharePostInput) (*model.Post, error) {
	postType := model.PostType(input.Type)
	if !postType.IsValid() {
		return nil, model.NewInvalidPostTypeError(input.Type)
	}
	if input.SpotifyID == "" {
		return nil, model.NewInvalidSpotifyIDError()
	}

	post := &model.Post{
		ID:        uuid.New().String(),
		UserID:    spotifyUserID,
		SpotifyID: input.SpotifyID,
		Type:      postType,
		Caption:   s.sanitizer.SanitizeText(input.Caption),
		Tags:      s.sanitizer.SanitizeText(input.Tags),
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	s.logger.Info("投稿を作成しました",
		slog.String("post_id", post.ID),
		slog.String("user_id", spotifyUserID),
		slog.String("type", string(postType)),
	)

	return post, nil
}

// AddComment は投稿へコメントを追加し、採番済みのコメントを返す。
// 返されたコメントをそのままスレッド末尾へ追記できる。
// 空白のみのコメントは拒否する。
func (s *Service) AddComment(ctx context.Context, spotifyUserID, postID, body string) (*model.Comment, error) {
	text := s.sanitizer.SanitizeText(body)
	if text == "" {
		return nil, model.NewEmptyCommentError()
	}

	target, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	comment := &model.Comment{
		CommentID: uuid.New().String(),
		PostID:    target.ID,
		UserID:    spotifyUserID,
		Comment:   text,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	s.logger.Info("コメントを作成しました",
		slog.String("comment_id", comment.CommentID),
		slog.String("post_id", target.ID),
		slog.String("user_id", spotifyUserID),
	)

	return comment, nil
}

// ListComments は投稿のコメントを古い順で返す。
func (s *Service) ListComments(ctx context.Context, postID string) ([]*model.Comment, error) {
	target, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	comments, err := s.commentRepo.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return comments, nil
}
