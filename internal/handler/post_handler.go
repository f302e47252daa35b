package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/playlistr/internal/middleware"
	"github.com/hitoshi/playlistr/internal/model"
	"github.com/hitoshi/playlistr/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// SharePost は共有投稿を作成する。
	SharePost(ctx context.Context, spotifyUserID string, input post.SharePostInput) (*model.Post, error)
	// AddComment は投稿へコメントを追加し、採番済みのコメントを返す。
	AddComment(ctx context.Context, spotifyUserID, postID, body string) (*model.Comment, error)
	// ListComments は投稿のコメントを古い順で返す。
	ListComments(ctx context.Context, postID string) ([]*model.Comment, error)
}

// PostMetrics は投稿・コメント作成のメトリクスを記録するインターフェース。
type PostMetrics interface {
	IncPostCreated()
	IncCommentCreated()
}

// PostHandler は投稿・コメントのHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	metrics PostMetrics
}

// NewPostHandler はPostHandlerを生成する。metricsはnil可。
func NewPostHandler(service PostServiceInterface, metrics PostMetrics) *PostHandler {
	return &PostHandler{
		service: service,
		metrics: metrics,
	}
}

// sharePostRequest は投稿作成リクエストのボディ。
type sharePostRequest struct {
	SpotifyID string `json:"spotify_id"`
	Type      string `json:"type"`
	Caption   string `json:"caption"`
	Tags      string `json:"tags"`
}

// addCommentRequest はコメント作成リクエストのボディ。
type addCommentRequest struct {
	Comment string `json:"comment"`
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SpotifyID string    `json:"spotify_id"`
	Type      string    `json:"type"`
	Caption   string    `json:"caption"`
	Tags      []string  `json:"tags"`
	EmbedURL  string    `json:"embed_url"`
	SharedAt  time.Time `json:"shared_at"`
}

// commentResponse はコメントのAPIレスポンス。
type commentResponse struct {
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Comment   string    `json:"comment"`
	SharedAt  time.Time `json:"shared_at"`
}

// SharePost は投稿作成を処理する。
// POST /api/posts
func (h *PostHandler) SharePost(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req sharePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	created, err := h.service.SharePost(r.Context(), principal.SpotifyUserID, post.SharePostInput{
		SpotifyID: req.SpotifyID,
		Type:      req.Type,
		Caption:   req.Caption,
		Tags:      req.Tags,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.IncPostCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPostResponse(created))
}

// ListComments は投稿のコメント一覧を返す。
// GET /api/posts/:id/comments
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	comments, err := h.service.ListComments(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, toCommentResponse(comment))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]commentResponse{
		"comments": responses,
	})
}

// AddComment は投稿へのコメント追加を処理する。
// 作成されたコメントをそのまま返すため、クライアントは再取得なしに
// スレッド末尾へ追記できる。
// POST /api/posts/:id/comments
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	postID := chi.URLParam(r, "id")

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	created, err := h.service.AddComment(r.Context(), principal.SpotifyUserID, postID, req.Comment)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.IncCommentCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCommentResponse(created))
}

// toPostResponse はmodel.PostからAPIレスポンスに変換する。
func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		SpotifyID: p.SpotifyID,
		Type:      string(p.Type),
		Caption:   p.Caption,
		Tags:      model.TagChips(p.Tags),
		EmbedURL:  p.EmbedURL(),
		SharedAt:  p.SharedAt,
	}
}

// toCommentResponse はmodel.CommentからAPIレスポンスに変換する。
func toCommentResponse(c *model.Comment) commentResponse {
	return commentResponse{
		CommentID: c.CommentID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Comment:   c.Comment,
		SharedAt:  c.SharedAt,
	}
}
