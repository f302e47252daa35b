package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/playlistr/internal/model"
	"github.com/hitoshi/playlistr/internal/repository"
)

// AuthorView はフィード表示用の投稿者情報。
type AuthorView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// CommentView はフィード表示用のコメント。
type CommentView struct {
	CommentID string     `json:"comment_id"`
	Author    AuthorView `json:"author"`
	Comment   string     `json:"comment"`
	SharedAt  time.Time  `json:"shared_at"`
}

// PostView はフィード表示用の投稿。
type PostView struct {
	ID       string        `json:"id"`
	Author   AuthorView    `json:"author"`
	Type     string        `json:"type"`
	Caption  string        `json:"caption"`
	Tags     []string      `json:"tags"`
	EmbedURL string        `json:"embed_url"`
	SharedAt time.Time     `json:"shared_at"`
	Comments []CommentView `json:"comments"`
}

// FeedView はフィード全体のビュー。投稿は新しい順に並ぶ。
type FeedView struct {
	Posts []PostView `json:"posts"`
}

// Assembler は投稿・コメント・プロフィールを集約してフィードを構築する。
type Assembler struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	resolver    *ProfileResolver
	logger      *slog.Logger
	fanout      int
}

// NewAssembler はAssemblerを生成する。
// fanoutが0以下の場合はデフォルト値8を使用する。
func NewAssembler(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	resolver *ProfileResolver,
	logger *slog.Logger,
	fanout int,
) *Assembler {
	if fanout <= 0 {
		fanout = 8
	}
	return &Assembler{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		resolver:    resolver,
		logger:      logger,
		fanout:      fanout,
	}
}

// BuildFeed は全投稿のフィードを構築する。
func (a *Assembler) BuildFeed(ctx context.Context, accessToken string) (*FeedView, error) {
	posts, err := a.postRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return a.assemble(ctx, accessToken, posts)
}

// BuildUserFeed は指定外部ユーザーIDの投稿のみのフィードを構築する。
func (a *Assembler) BuildUserFeed(ctx context.Context, accessToken, spotifyUserID string) (*FeedView, error) {
	posts, err := a.postRepo.ListByUserID(ctx, spotifyUserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー投稿の取得に失敗しました: %w", err)
	}
	return a.assemble(ctx, accessToken, posts)
}

// assemble は投稿リストからフィードビューを構築する。
//
//  1. 各投稿のコメントを並列取得する（投稿の並び順は維持される）
//  2. 投稿者とコメント投稿者の重複排除済みID集合のプロフィールを一括解決する
//  3. 投稿ごとにビューを組み立てる
//
// プロフィール解決に失敗した投稿者はUnknownとして表示され、
// フィード全体が失敗することはない。
func (a *Assembler) assemble(ctx context.Context, accessToken string, posts []*model.Post) (*FeedView, error) {
	if len(posts) == 0 {
		return &FeedView{Posts: []PostView{}}, nil
	}

	// 1. コメントを並列取得。完了順によらず、結果はインデックスで対応付ける
	commentLists := make([][]*model.Comment, len(posts))
	sem := make(chan struct{}, a.fanout)
	var wg sync.WaitGroup

	for i, post := range posts {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(idx int, p *model.Post) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			comments, err := a.commentRepo.ListByPostID(ctx, p.ID)
			if err != nil {
				a.logger.Error("コメントの取得に失敗しました。空のスレッドとして表示します",
					slog.String("post_id", p.ID),
					slog.String("error", err.Error()),
				)
				return
			}
			commentLists[idx] = comments
		}(i, post)
	}
	wg.Wait()

	// 2. 投稿者とコメント投稿者のプロフィールを一括解決
	var userIDs []string
	for i, post := range posts {
		userIDs = append(userIDs, post.UserID)
		for _, comment := range commentLists[i] {
			userIDs = append(userIDs, comment.UserID)
		}
	}
	profiles := a.resolver.ResolveAll(ctx, accessToken, userIDs)

	// 3. ビューを組み立てる
	views := make([]PostView, 0, len(posts))
	for i, post := range posts {
		comments := make([]CommentView, 0, len(commentLists[i]))
		for _, comment := range commentLists[i] {
			comments = append(comments, CommentView{
				CommentID: comment.CommentID,
				Author:    authorView(comment.UserID, profiles),
				Comment:   comment.Comment,
				SharedAt:  comment.SharedAt,
			})
		}

		views = append(views, PostView{
			ID:       post.ID,
			Author:   authorView(post.UserID, profiles),
			Type:     string(post.Type),
			Caption:  post.Caption,
			Tags:     model.TagChips(post.Tags),
			EmbedURL: post.EmbedURL(),
			SharedAt: post.SharedAt,
			Comments: comments,
		})
	}

	return &FeedView{Posts: views}, nil
}

// authorView はプロフィールマップから表示用の投稿者情報を構築する。
// マップに存在しないIDはUnknownとして扱う。
func authorView(userID string, profiles map[string]*model.Profile) AuthorView {
	profile, ok := profiles[userID]
	if !ok || profile == nil {
		profile = model.UnknownProfile(userID)
	}
	return AuthorView{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}
}
