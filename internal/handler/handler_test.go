package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/playlistr/internal/middleware"
)

// withPrincipal はリクエストに認証主体を注入する。
func withPrincipal(r *http.Request, userID, spotifyUserID string) *http.Request {
	principal := &middleware.Principal{
		UserID:        userID,
		SpotifyUserID: spotifyUserID,
		AccessToken:   "access-token-1",
	}
	return r.WithContext(middleware.ContextWithPrincipal(r.Context(), principal))
}

// withChiURLParam はchiのURLパラメータをリクエストコンテキストに設定する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseAPIErrorResponse はエラーレスポンスのボディを解析する。
func parseAPIErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}
