// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションと保持期間（デフォルト30日）を超過したニュース記事を
// 定期バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/playlistr/internal/repository"
)

// CleanupJob は期限切れセッションと古いニュース記事の自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessionRepo       repository.SessionRepository
	newsRepo          repository.NewsItemRepository
	logger            *slog.Logger
	NewsRetentionDays int // ニュース記事の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトのニュース保持日数は30日。
func NewCleanupJob(sessionRepo repository.SessionRepository, newsRepo repository.NewsItemRepository, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessionRepo:       sessionRepo,
		newsRepo:          newsRepo,
		logger:            logger,
		NewsRetentionDays: 30,
	}
}

// Run は期限切れセッションと保持期間を超過したニュース記事を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionCount, err := j.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -j.NewsRetentionDays)
	newsCount, err := j.newsRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("古いニュース記事の削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.NewsRetentionDays),
		)
		return fmt.Errorf("古いニュース記事の削除に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int64("deleted_news_items", newsCount),
		slog.Int("retention_days", j.NewsRetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
