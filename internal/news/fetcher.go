package news

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/playlistr/internal/model"
	"github.com/hitoshi/playlistr/internal/repository"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Sanitizer はニュースサマリーのサニタイズのインターフェース。
type Sanitizer interface {
	SanitizeHTML(rawHTML string) string
}

// FetcherMetrics はニュース取り込みのメトリクスを記録するインターフェース。
type FetcherMetrics interface {
	ObserveNewsFetch(sourceURL, status string, duration time.Duration)
	AddNewsItemsInserted(count int)
}

// Fetcher は個別ニュースソースのHTTPフェッチ・パース・保存を行う。
// ソースURLがHTMLページの場合はheadタグからフィードURLを自動検出し、
// 解決結果をメモリ上に保持して以後のフェッチで再利用する。
type Fetcher struct {
	newsRepo    repository.NewsItemRepository
	ssrfGuard   SSRFValidator
	sanitizer   Sanitizer
	logger      *slog.Logger
	metrics     FetcherMetrics
	timeout     time.Duration
	maxBodySize int64

	mu       sync.Mutex
	resolved map[string]string // ソースURL → 解決済みフィードURL
}

// NewFetcher はFetcherの新しいインスタンスを生成する。metricsはnil可。
func NewFetcher(
	newsRepo repository.NewsItemRepository,
	ssrfGuard SSRFValidator,
	sanitizer Sanitizer,
	logger *slog.Logger,
	metrics FetcherMetrics,
	timeout time.Duration,
	maxBodySize int64,
) *Fetcher {
	return &Fetcher{
		newsRepo:    newsRepo,
		ssrfGuard:   ssrfGuard,
		sanitizer:   sanitizer,
		logger:      logger,
		metrics:     metrics,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		resolved:    make(map[string]string),
	}
}

// FetchSource はソースをフェッチし、記事を保存する。挿入件数と総件数を返す。
func (f *Fetcher) FetchSource(ctx context.Context, sourceURL string) (int, int, error) {
	start := time.Now()

	inserted, total, err := f.fetchSource(ctx, sourceURL)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if f.metrics != nil {
		f.metrics.ObserveNewsFetch(sourceURL, status, time.Since(start))
		f.metrics.AddNewsItemsInserted(inserted)
	}
	return inserted, total, err
}

func (f *Fetcher) fetchSource(ctx context.Context, sourceURL string) (int, int, error) {
	// SSRF検証
	if err := f.ssrfGuard.ValidateURL(sourceURL); err != nil {
		return 0, 0, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	feedURL, err := f.resolveFeedURL(ctx, sourceURL)
	if err != nil {
		return 0, 0, err
	}

	body, _, err := f.get(ctx, feedURL)
	if err != nil {
		return 0, 0, err
	}

	// gofeedでフィードをパース
	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		return 0, 0, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	items := convertGofeedItems(parsedFeed.Title, parsedFeed.Items)

	inserted := 0
	now := time.Now()
	for _, parsed := range items {
		item := &model.NewsItem{
			ID:          uuid.New().String(),
			SourceTitle: parsed.SourceTitle,
			Title:       parsed.Title,
			Link:        parsed.Link,
			Summary:     f.sanitizer.SanitizeHTML(parsed.Summary),
			PublishedAt: parsed.PublishedAt,
			FetchedAt:   now,
		}
		isNew, err := f.newsRepo.Upsert(ctx, item)
		if err != nil {
			f.logger.Error("記事のUPSERTに失敗しました",
				slog.String("source_url", sourceURL),
				slog.String("link", item.Link),
				slog.String("error", err.Error()),
			)
			continue
		}
		if isNew {
			inserted++
		}
	}

	f.logger.Info("ニュースソースのフェッチが完了しました",
		slog.String("source_url", sourceURL),
		slog.String("feed_url", feedURL),
		slog.Int("items_inserted", inserted),
		slog.Int("items_total", len(items)),
	)

	return inserted, len(items), nil
}

// resolveFeedURL はソースURLからフィードURLを解決する。
// 直接フィードの場合はそのまま、HTMLページの場合はheadタグから検出する。
// 解決結果はプロセス内でキャッシュされる。
func (f *Fetcher) resolveFeedURL(ctx context.Context, sourceURL string) (string, error) {
	f.mu.Lock()
	if cached, ok := f.resolved[sourceURL]; ok {
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	body, contentType, err := f.get(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	feedURL := sourceURL
	if !isDirectFeed(contentType, body) {
		mediaType, _, _ := mime.ParseMediaType(contentType)
		if !strings.Contains(strings.ToLower(mediaType), "html") {
			return "", fmt.Errorf("フィードを検出できませんでした: %s", sourceURL)
		}
		feedURL = parseFeedLinks(body, sourceURL)
		if feedURL == "" {
			return "", fmt.Errorf("フィードを検出できませんでした: %s", sourceURL)
		}
		if err := f.ssrfGuard.ValidateURL(feedURL); err != nil {
			return "", fmt.Errorf("検出されたフィードURLのSSRF検証に失敗: %w", err)
		}
	}

	f.mu.Lock()
	f.resolved[sourceURL] = feedURL
	f.mu.Unlock()
	return feedURL, nil
}

// get はSSRF防止付きクライアントでGETし、ボディとContent-Typeを返す。
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "Playlistr/1.0 Music News")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTPステータス %d が返されました: %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// convertGofeedItems はgofeedの記事をmodel.ParsedNewsItemに変換する。
// リンクのない記事は保存対象から除外する。
func convertGofeedItems(sourceTitle string, items []*gofeed.Item) []model.ParsedNewsItem {
	parsedItems := make([]model.ParsedNewsItem, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		parsed := model.ParsedNewsItem{
			SourceTitle: sourceTitle,
			Title:       item.Title,
			Link:        item.Link,
			Summary:     item.Description,
		}

		// LinkがなくGUIDがURL形式の場合はGUIDをLinkとして使用
		if parsed.Link == "" && item.GUID != "" &&
			(strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://")) {
			parsed.Link = item.GUID
		}
		if parsed.Link == "" || parsed.Title == "" {
			continue
		}

		// Summaryが空の場合はContentを使用
		if parsed.Summary == "" && item.Content != "" {
			parsed.Summary = item.Content
		}

		// 公開日時
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			parsed.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			parsed.PublishedAt = &t
		}

		parsedItems = append(parsedItems, parsed)
	}

	return parsedItems
}
