package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/playlistr/internal/feed"
)

// mockFeedService はFeedServiceInterfaceのモック実装。
type mockFeedService struct {
	buildFeedFn     func(ctx context.Context, accessToken string) (*feed.FeedView, error)
	buildUserFeedFn func(ctx context.Context, accessToken, spotifyUserID string) (*feed.FeedView, error)
}

func (m *mockFeedService) BuildFeed(ctx context.Context, accessToken string) (*feed.FeedView, error) {
	return m.buildFeedFn(ctx, accessToken)
}

func (m *mockFeedService) BuildUserFeed(ctx context.Context, accessToken, spotifyUserID string) (*feed.FeedView, error) {
	return m.buildUserFeedFn(ctx, accessToken, spotifyUserID)
}

// TestFeedHandler_GetFeed はフィード取得の正常系を検証する。
func TestFeedHandler_GetFeed(t *testing.T) {
	service := &mockFeedService{
		buildFeedFn: func(ctx context.Context, accessToken string) (*feed.FeedView, error) {
			if accessToken != "access-token-1" {
				t.Errorf("accessToken = %q, want %q", accessToken, "access-token-1")
			}
			return &feed.FeedView{
				Posts: []feed.PostView{
					{
						ID:       "post-1",
						Author:   feed.AuthorView{ID: "spotify-user-1", DisplayName: "Test User"},
						Type:     "track",
						Caption:  "夜に聴きたい",
						EmbedURL: "https://open.spotify.com/embed/track/track-1",
						SharedAt: time.Now(),
						Comments: []feed.CommentView{},
					},
				},
			}, nil
		},
	}
	h := NewFeedHandler(service)

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/feed", nil), "user-1", "spotify-user-1")
	rec := httptest.NewRecorder()
	h.GetFeed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var view feed.FeedView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if len(view.Posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(view.Posts))
	}
	if view.Posts[0].Author.DisplayName != "Test User" {
		t.Errorf("author = %q", view.Posts[0].Author.DisplayName)
	}
}

// TestFeedHandler_GetFeed_Unauthorized は未認証リクエストに401が返ることを検証する。
func TestFeedHandler_GetFeed_Unauthorized(t *testing.T) {
	service := &mockFeedService{
		buildFeedFn: func(ctx context.Context, accessToken string) (*feed.FeedView, error) {
			t.Fatal("BuildFeed should not be called")
			return nil, nil
		},
	}
	h := NewFeedHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	rec := httptest.NewRecorder()
	h.GetFeed(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	body := parseAPIErrorResponse(t, rec)
	if body.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", body.Code)
	}
}

// TestFeedHandler_GetFeed_ServiceError はフィード構築失敗で500が返ることを検証する。
func TestFeedHandler_GetFeed_ServiceError(t *testing.T) {
	service := &mockFeedService{
		buildFeedFn: func(ctx context.Context, accessToken string) (*feed.FeedView, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewFeedHandler(service)

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/feed", nil), "user-1", "spotify-user-1")
	rec := httptest.NewRecorder()
	h.GetFeed(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	body := parseAPIErrorResponse(t, rec)
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}

// TestFeedHandler_GetUserFeed はURLパラメータのユーザーIDが
// サービスに渡されることを検証する。
func TestFeedHandler_GetUserFeed(t *testing.T) {
	service := &mockFeedService{
		buildUserFeedFn: func(ctx context.Context, accessToken, spotifyUserID string) (*feed.FeedView, error) {
			if spotifyUserID != "spotify-user-2" {
				t.Errorf("spotifyUserID = %q, want %q", spotifyUserID, "spotify-user-2")
			}
			return &feed.FeedView{Posts: []feed.PostView{}}, nil
		},
	}
	h := NewFeedHandler(service)

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/users/spotify-user-2/posts", nil), "user-1", "spotify-user-1")
	req = withChiURLParam(req, "id", "spotify-user-2")
	rec := httptest.NewRecorder()
	h.GetUserFeed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var view feed.FeedView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if view.Posts == nil {
		t.Error("posts should be an empty array, not null")
	}
}

// TestFeedHandler_GetUserFeed_Unauthorized は未認証リクエストに401が返ることを検証する。
func TestFeedHandler_GetUserFeed_Unauthorized(t *testing.T) {
	service := &mockFeedService{}
	h := NewFeedHandler(service)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/users/spotify-user-2/posts", nil), "id", "spotify-user-2")
	rec := httptest.NewRecorder()
	h.GetUserFeed(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
