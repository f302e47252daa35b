package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/playlistr/internal/cache"
	"github.com/hitoshi/playlistr/internal/middleware"
	"github.com/hitoshi/playlistr/internal/model"
)

// CatalogClientInterface はカタログハンドラーが必要とするクライアントインターフェース。
type CatalogClientInterface interface {
	SearchTracks(ctx context.Context, accessToken, query string) ([]*model.Track, error)
	SearchPlaylists(ctx context.Context, accessToken, query string) ([]*model.Playlist, error)
	GetMe(ctx context.Context, accessToken string) (*model.Profile, error)
	GetUserProfile(ctx context.Context, accessToken, userID string) (*model.Profile, error)
	GetCurrentlyPlaying(ctx context.Context, accessToken string) (*model.NowPlaying, error)
	GetTopTracks(ctx context.Context, accessToken string) ([]*model.Track, error)
}

// CatalogHandler はカタログ連携（検索・プロフィール・再生状態）のHTTPハンドラー。
// 再生中トラックはRedisキャッシュ経由のread-throughで取得する。
type CatalogHandler struct {
	catalog       CatalogClientInterface
	store         *cache.Store
	logger        *slog.Logger
	nowPlayingTTL time.Duration
}

// NewCatalogHandler はCatalogHandlerを生成する。
// nowPlayingTTLが0以下の場合はデフォルト値15秒を使用する。
func NewCatalogHandler(catalog CatalogClientInterface, store *cache.Store, logger *slog.Logger, nowPlayingTTL time.Duration) *CatalogHandler {
	if nowPlayingTTL <= 0 {
		nowPlayingTTL = 15 * time.Second
	}
	return &CatalogHandler{
		catalog:       catalog,
		store:         store,
		logger:        logger,
		nowPlayingTTL: nowPlayingTTL,
	}
}

// SearchTracks はトラック検索を処理する。
// 検索失敗時は空のリストを返す（UIの検索体験を劣化させない）。
// GET /api/search/tracks?q=xxx
func (h *CatalogHandler) SearchTracks(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewEmptyQueryError())
		return
	}

	tracks, err := h.catalog.SearchTracks(r.Context(), principal.AccessToken, query)
	if err != nil {
		h.logger.Warn("トラック検索に失敗しました。空の結果を返します",
			slog.String("error", err.Error()),
		)
		tracks = []*model.Track{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]*model.Track{
		"tracks": tracks,
	})
}

// SearchPlaylists は公開プレイリスト検索を処理する。
// 検索失敗時は空のリストを返す。
// GET /api/search/playlists?q=xxx
func (h *CatalogHandler) SearchPlaylists(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewEmptyQueryError())
		return
	}

	playlists, err := h.catalog.SearchPlaylists(r.Context(), principal.AccessToken, query)
	if err != nil {
		h.logger.Warn("プレイリスト検索に失敗しました。空の結果を返します",
			slog.String("error", err.Error()),
		)
		playlists = []*model.Playlist{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]*model.Playlist{
		"playlists": playlists,
	})
}

// GetMyProfile は認証済みユーザー自身のプロフィールを返す。
// GET /api/me/profile
func (h *CatalogHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.catalog.GetMe(r.Context(), principal.AccessToken)
	if err != nil {
		handleServiceError(w, model.NewCatalogFailedError(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// GetUserProfile は指定外部ユーザーIDのプロフィールを返す。
// GET /api/users/:id
func (h *CatalogHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	userID := chi.URLParam(r, "id")

	profile, err := h.catalog.GetUserProfile(r.Context(), principal.AccessToken, userID)
	if err != nil {
		handleServiceError(w, model.NewProfileNotFoundError(userID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// nowPlayingResponse は再生中トラックのAPIレスポンス。
// 何も再生していない場合はplaying=false、track=null。
type nowPlayingResponse struct {
	Playing bool              `json:"playing"`
	Track   *model.NowPlaying `json:"track"`
}

// GetNowPlaying は認証済みユーザーの再生中トラックを返す。
// UIの定期ポーリングを想定し、結果は短いTTLでキャッシュされる。
// 何も再生していない状態もキャッシュ対象とする。
// GET /api/me/now-playing
func (h *CatalogHandler) GetNowPlaying(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	key := "nowplaying:" + principal.SpotifyUserID

	var cached nowPlayingResponse
	cacheErr := h.store.GetJSON(r.Context(), key, &cached)
	if cacheErr == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cached)
		return
	}
	if !errors.Is(cacheErr, cache.ErrCacheMiss) {
		h.logger.Warn("再生状態キャッシュの読み取りに失敗しました",
			slog.String("error", cacheErr.Error()),
		)
	}

	nowPlaying, err := h.catalog.GetCurrentlyPlaying(r.Context(), principal.AccessToken)
	if err != nil {
		handleServiceError(w, model.NewCatalogFailedError(err.Error()))
		return
	}

	response := nowPlayingResponse{
		Playing: nowPlaying != nil,
		Track:   nowPlaying,
	}

	if err := h.store.SetJSON(r.Context(), key, response, h.nowPlayingTTL); err != nil {
		h.logger.Warn("再生状態キャッシュの書き込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetTopTracks は認証済みユーザーの長期トップトラックを返す。
// GET /api/me/top-tracks
func (h *CatalogHandler) GetTopTracks(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	tracks, err := h.catalog.GetTopTracks(r.Context(), principal.AccessToken)
	if err != nil {
		handleServiceError(w, model.NewCatalogFailedError(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]*model.Track{
		"tracks": tracks,
	})
}
