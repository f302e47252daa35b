package post

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/playlistr/internal/model"
	"github.com/hitoshi/playlistr/internal/security"
)

// --- モック定義 ---

// mockPostRepo はrepository.PostRepositoryのモック実装。
type mockPostRepo struct {
	createFn       func(ctx context.Context, post *model.Post) error
	findByIDFn     func(ctx context.Context, id string) (*model.Post, error)
	listAllFn      func(ctx context.Context) ([]*model.Post, error)
	listByUserIDFn func(ctx context.Context, userID string) ([]*model.Post, error)
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	post.SharedAt = time.Now()
	return nil
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPostRepo) ListAll(ctx context.Context) ([]*model.Post, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockPostRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Post, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

// mockCommentRepo はrepository.CommentRepositoryのモック実装。
type mockCommentRepo struct {
	createFn       func(ctx context.Context, comment *model.Comment) error
	listByPostIDFn func(ctx context.Context, postID string) ([]*model.Comment, error)
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	if m.createFn != nil {
		return m.createFn(ctx, comment)
	}
	comment.SharedAt = time.Now()
	return nil
}

func (m *mockCommentRepo) ListByPostID(ctx context.Context, postID string) ([]*model.Comment, error) {
	if m.listByPostIDFn != nil {
		return m.listByPostIDFn(ctx, postID)
	}
	return nil, nil
}

func newTestService(postRepo *mockPostRepo, commentRepo *mockCommentRepo) *Service {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewService(postRepo, commentRepo, security.NewContentSanitizer(), logger)
}

// --- SharePost テスト ---

// TestService_SharePost_Success は投稿作成の正常系を検証する。
func TestService_SharePost_Success(t *testing.T) {
	var created *model.Post
	postRepo := &mockPostRepo{
		createFn: func(ctx context.Context, post *model.Post) error {
			created = post
			post.SharedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
			return nil
		},
	}
	svc := newTestService(postRepo, &mockCommentRepo{})

	got, err := svc.SharePost(context.Background(), "spotify-user-1", SharePostInput{
		SpotifyID: "4uLU6hMCjMI75M1A2tKUQC",
		Type:      "song",
		Caption:   "夜に聴きたい一曲",
		Tags:      "Chill, Evening",
	})
	if err != nil {
		t.Fatalf("SharePost() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected post to be persisted")
	}
	if got.ID == "" {
		t.Error("expected generated post ID")
	}
	if got.UserID != "spotify-user-1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "spotify-user-1")
	}
	if got.Type != model.PostTypeSong {
		t.Errorf("Type = %q, want %q", got.Type, model.PostTypeSong)
	}
	if got.SharedAt.IsZero() {
		t.Error("expected SharedAt to be set by repository")
	}
}

// TestService_SharePost_InvalidType は不正な投稿種類が拒否されることを検証する。
func TestService_SharePost_InvalidType(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, &mockCommentRepo{})

	_, err := svc.SharePost(context.Background(), "spotify-user-1", SharePostInput{
		SpotifyID: "abc",
		Type:      "album",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidPostType {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidPostType)
	}
}

// TestService_SharePost_EmptySpotifyID はカタログアイテム未選択が拒否されることを検証する。
func TestService_SharePost_EmptySpotifyID(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, &mockCommentRepo{})

	_, err := svc.SharePost(context.Background(), "spotify-user-1", SharePostInput{
		SpotifyID: "",
		Type:      "playlist",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidSpotifyID {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidSpotifyID)
	}
}

// TestService_SharePost_SanitizesCaption はキャプションのHTMLタグが除去されることを検証する。
func TestService_SharePost_SanitizesCaption(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, &mockCommentRepo{})

	got, err := svc.SharePost(context.Background(), "spotify-user-1", SharePostInput{
		SpotifyID: "abc",
		Type:      "song",
		Caption:   "<script>alert('x')</script>いい曲",
	})
	if err != nil {
		t.Fatalf("SharePost() error = %v", err)
	}

	if got.Caption != "いい曲" {
		t.Errorf("Caption = %q, want %q", got.Caption, "いい曲")
	}
}

// --- AddComment テスト ---

// TestService_AddComment_Success はコメント追加の正常系を検証する。
// 返されたコメントにはリポジトリが採番したshared_atが含まれること。
func TestService_AddComment_Success(t *testing.T) {
	sharedAt := time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)
	postRepo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id, Type: model.PostTypeSong}, nil
		},
	}
	commentRepo := &mockCommentRepo{
		createFn: func(ctx context.Context, comment *model.Comment) error {
			comment.SharedAt = sharedAt
			return nil
		},
	}
	svc := newTestService(postRepo, commentRepo)

	got, err := svc.AddComment(context.Background(), "spotify-user-2", "post-1", "私もこの曲好きです")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}

	if got.CommentID == "" {
		t.Error("expected generated comment ID")
	}
	if got.PostID != "post-1" {
		t.Errorf("PostID = %q, want %q", got.PostID, "post-1")
	}
	if got.UserID != "spotify-user-2" {
		t.Errorf("UserID = %q, want %q", got.UserID, "spotify-user-2")
	}
	if !got.SharedAt.Equal(sharedAt) {
		t.Errorf("SharedAt = %v, want %v", got.SharedAt, sharedAt)
	}
}

// TestService_AddComment_EmptyBody は空白のみのコメントが拒否されることを検証する。
func TestService_AddComment_EmptyBody(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, &mockCommentRepo{})

	tests := []string{"", "   ", "<b></b>"}
	for _, body := range tests {
		_, err := svc.AddComment(context.Background(), "spotify-user-1", "post-1", body)

		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("body %q: expected APIError, got %v", body, err)
		}
		if apiErr.Code != model.ErrCodeEmptyComment {
			t.Errorf("body %q: Code = %q, want %q", body, apiErr.Code, model.ErrCodeEmptyComment)
		}
	}
}

// TestService_AddComment_PostNotFound は存在しない投稿へのコメントが拒否されることを検証する。
func TestService_AddComment_PostNotFound(t *testing.T) {
	postRepo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return nil, nil
		},
	}
	svc := newTestService(postRepo, &mockCommentRepo{})

	_, err := svc.AddComment(context.Background(), "spotify-user-1", "missing", "コメント")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodePostNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodePostNotFound)
	}
}

// --- ListComments テスト ---

// TestService_ListComments_Success はコメント一覧が取得できることを検証する。
func TestService_ListComments_Success(t *testing.T) {
	postRepo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id}, nil
		},
	}
	commentRepo := &mockCommentRepo{
		listByPostIDFn: func(ctx context.Context, postID string) ([]*model.Comment, error) {
			return []*model.Comment{
				{CommentID: "c-1", PostID: postID},
				{CommentID: "c-2", PostID: postID},
			}, nil
		},
	}
	svc := newTestService(postRepo, commentRepo)

	comments, err := svc.ListComments(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 2 {
		t.Errorf("len(comments) = %d, want 2", len(comments))
	}
}

// TestService_ListComments_PostNotFound は存在しない投稿のコメント一覧が拒否されることを検証する。
func TestService_ListComments_PostNotFound(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, &mockCommentRepo{})

	_, err := svc.ListComments(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodePostNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodePostNotFound)
	}
}

// TestService_SharePost_RepoError はリポジトリエラーがラップされて返ることを検証する。
func TestService_SharePost_RepoError(t *testing.T) {
	postRepo := &mockPostRepo{
		createFn: func(ctx context.Context, post *model.Post) error {
			return errors.New("db down")
		},
	}
	svc := newTestService(postRepo, &mockCommentRepo{})

	_, err := svc.SharePost(context.Background(), "spotify-user-1", SharePostInput{
		SpotifyID: "abc",
		Type:      "song",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("expected plain error, got APIError %v", apiErr)
	}
}
