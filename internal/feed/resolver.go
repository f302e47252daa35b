// Package feed はタイムラインの組み立てを提供する。
// 投稿・コメント・投稿者プロフィールを集約し、表示用のビューを構築する。
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/playlistr/internal/cache"
	"github.com/hitoshi/playlistr/internal/model"
)

// ProfileFetcher はカタログAPIからプロフィールを取得するインターフェース。
type ProfileFetcher interface {
	GetUserProfile(ctx context.Context, accessToken, userID string) (*model.Profile, error)
}

// ResolverMetrics はプロフィール解決のメトリクスを記録するインターフェース。
type ResolverMetrics interface {
	IncProfileCacheHit()
	IncProfileCacheMiss()
	IncProfileResolveFailure()
}

// profileCacheTTL はRedis上のプロフィールキャッシュの有効期間。
const profileCacheTTL = time.Hour

// ProfileResolver は外部ユーザーIDからプロフィールを解決する。
// Redisキャッシュ、カタログAPIの順に照会する。
// ResolveAllは1回の呼び出し内で同一IDのカタログAPI照会を最大1回に抑える。
type ProfileResolver struct {
	catalog ProfileFetcher
	store   *cache.Store
	logger  *slog.Logger
	metrics ResolverMetrics
	fanout  int
}

// NewProfileResolver はProfileResolverを生成する。
// fanoutが0以下の場合はデフォルト値8を使用する。metricsはnil可。
func NewProfileResolver(catalog ProfileFetcher, store *cache.Store, logger *slog.Logger, metrics ResolverMetrics, fanout int) *ProfileResolver {
	if fanout <= 0 {
		fanout = 8
	}
	return &ProfileResolver{
		catalog: catalog,
		store:   store,
		logger:  logger,
		metrics: metrics,
		fanout:  fanout,
	}
}

// Resolve は1件のプロフィールを解決する。
// キャッシュミス時はカタログAPIへ照会し、結果をキャッシュへ書き込む。
// カタログAPIの失敗はエラーとして返し、劣化時の挙動は呼び出し元が決定する。
func (r *ProfileResolver) Resolve(ctx context.Context, accessToken, userID string) (*model.Profile, error) {
	key := "profile:" + userID

	profile := &model.Profile{}
	err := r.store.GetJSON(ctx, key, profile)
	if err == nil {
		if r.metrics != nil {
			r.metrics.IncProfileCacheHit()
		}
		return profile, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Redis障害はキャッシュミスと同様に扱い、オリジンへフォールバックする
		r.logger.Warn("プロフィールキャッシュの読み取りに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	if r.metrics != nil {
		r.metrics.IncProfileCacheMiss()
	}

	profile, err = r.catalog.GetUserProfile(ctx, accessToken, userID)
	if err != nil {
		if r.metrics != nil {
			r.metrics.IncProfileResolveFailure()
		}
		return nil, err
	}

	if err := r.store.SetJSON(ctx, key, profile, profileCacheTTL); err != nil {
		r.logger.Warn("プロフィールキャッシュの書き込みに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return profile, nil
}

// ResolveAll は複数の外部ユーザーIDのプロフィールを一括解決する。
// IDは重複排除され、同一IDのカタログAPI照会は最大1回となる。
// semaphoreパターンで並列数を制御する。
// 解決に失敗したIDにはUnknownセンチネルが割り当てられ、マップは常に全IDを含む。
func (r *ProfileResolver) ResolveAll(ctx context.Context, accessToken string, userIDs []string) map[string]*model.Profile {
	// 重複排除
	seen := make(map[string]struct{}, len(userIDs))
	distinct := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	profiles := make(map[string]*model.Profile, len(distinct))
	var mu sync.Mutex

	sem := make(chan struct{}, r.fanout)
	var wg sync.WaitGroup

	for _, id := range distinct {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			profile, err := r.Resolve(ctx, accessToken, userID)
			if err != nil {
				r.logger.Warn("プロフィールの解決に失敗しました。Unknownとして表示します",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				profile = model.UnknownProfile(userID)
			}

			mu.Lock()
			profiles[userID] = profile
			mu.Unlock()
		}(id)
	}

	wg.Wait()
	return profiles
}
