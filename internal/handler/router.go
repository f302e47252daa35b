package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/playlistr/internal/cache"
	"github.com/hitoshi/playlistr/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存を表す。
// *sql.DBがこのインターフェースを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// /metrics で公開するPrometheusハンドラー（nil可）
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// フィード
	FeedService FeedServiceInterface

	// 投稿・コメント
	PostService PostServiceInterface
	PostMetrics PostMetrics

	// カタログ連携
	CatalogClient CatalogClientInterface
	CacheStore    *cache.Store
	NowPlayingTTL time.Duration

	// ニュース
	NewsLister NewsListerInterface

	Logger *slog.Logger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SessionMiddleware → CSRFMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	feedHandler := NewFeedHandler(deps.FeedService)
	postHandler := NewPostHandler(deps.PostService, deps.PostMetrics)
	catalogHandler := NewCatalogHandler(deps.CatalogClient, deps.CacheStore, deps.Logger, deps.NowPlayingTTL)
	newsHandler := NewNewsHandler(deps.NewsLister)

	// --- 認証不要のルート ---

	// ヘルスチェック（DB疎通確認込み）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/spotify/login", authHandler.Login)
		r.Get("/spotify/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// タイムライン
		r.Get("/api/feed", feedHandler.GetFeed)

		// 投稿・コメント
		r.Route("/api/posts", func(r chi.Router) {
			// POST /api/posts - 投稿作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.ShareMiddleware()).Post("/", postHandler.SharePost)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/comments", postHandler.ListComments)
				r.Post("/comments", postHandler.AddComment)
			})
		})

		// 外部ユーザー
		r.Route("/api/users/{id}", func(r chi.Router) {
			r.Get("/", catalogHandler.GetUserProfile)
			r.Get("/posts", feedHandler.GetUserFeed)
		})

		// 自分のカタログ情報
		r.Route("/api/me", func(r chi.Router) {
			r.Get("/profile", catalogHandler.GetMyProfile)
			r.Get("/now-playing", catalogHandler.GetNowPlaying)
			r.Get("/top-tracks", catalogHandler.GetTopTracks)
		})

		// カタログ検索
		r.Route("/api/search", func(r chi.Router) {
			r.Get("/tracks", catalogHandler.SearchTracks)
			r.Get("/playlists", catalogHandler.SearchPlaylists)
		})

		// 音楽ニュース
		r.Get("/api/news", newsHandler.ListNews)
	})

	return r
}
