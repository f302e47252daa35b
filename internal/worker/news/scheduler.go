// Package news はニュース取り込みのバックグラウンド処理を提供する。
// スケジューラは設定されたソースURL群を一定間隔でフェッチする。
package news

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SourceFetcherService はニュースソースフェッチの実行インターフェース。
type SourceFetcherService interface {
	// FetchSource は指定ソースをフェッチし、挿入件数と総件数を返す。
	FetchSource(ctx context.Context, sourceURL string) (int, int, error)
}

// Scheduler はニュースソースフェッチのスケジューリングと並列制御を行う。
// ティッカーで起動し、semaphoreパターンで最大並列数を制御しながら
// 全ソースをフェッチする。
type Scheduler struct {
	sourceURLs     []string
	fetcher        SourceFetcherService
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	sourceURLs []string,
	fetcher SourceFetcherService,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		sourceURLs:     sourceURLs,
		fetcher:        fetcher,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ニューススケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("source_count", len(s.sourceURLs)),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ニューススケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は全ソースを1回フェッチする。
// semaphoreパターンで最大並列数を制御する。
// 個別ソースの失敗はログに記録し、他のソースの処理は継続する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	if len(s.sourceURLs) == 0 {
		s.logger.Info("フェッチ対象のニュースソースはありません")
		return
	}

	start := time.Now()
	s.logger.Info("ニュースフェッチサイクルを開始します",
		slog.Int("source_count", len(s.sourceURLs)),
	)

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, sourceURL := range s.sourceURLs {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if _, _, err := s.fetcher.FetchSource(ctx, u); err != nil {
				s.logger.Error("ニュースソースのフェッチに失敗しました",
					slog.String("source_url", u),
					slog.String("error", err.Error()),
				)
			}
		}(sourceURL)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("ニュースフェッチサイクルが完了しました",
		slog.Int("source_count", len(s.sourceURLs)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}
