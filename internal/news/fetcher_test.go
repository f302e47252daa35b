package news

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/playlistr/internal/model"
)

// --- モック定義 ---

// mockSSRFValidator はSSRFValidatorのモック実装。
// httptestサーバーへの接続を許可するため、検証は素通しする。
type mockSSRFValidator struct {
	validateFn func(rawURL string) error
}

func (m *mockSSRFValidator) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func (m *mockSSRFValidator) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

// mockSanitizer はSanitizerのモック実装。タグ除去の代わりに前後の空白を除去する。
type mockSanitizer struct{}

func (m *mockSanitizer) SanitizeHTML(rawHTML string) string {
	return strings.TrimSpace(rawHTML)
}

// mockNewsRepo はrepository.NewsItemRepositoryのモック実装。
type mockNewsRepo struct {
	mu       sync.Mutex
	items    []*model.NewsItem
	upsertFn func(ctx context.Context, item *model.NewsItem) (bool, error)
}

func (m *mockNewsRepo) Upsert(ctx context.Context, item *model.NewsItem) (bool, error) {
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()

	if m.upsertFn != nil {
		return m.upsertFn(ctx, item)
	}
	return true, nil
}

func (m *mockNewsRepo) ListRecent(ctx context.Context, limit int) ([]*model.NewsItem, error) {
	return nil, nil
}

func (m *mockNewsRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newTestFetcher(repo *mockNewsRepo) *Fetcher {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewFetcher(repo, &mockSSRFValidator{}, &mockSanitizer{}, logger, nil, 10*time.Second, 5*1024*1024)
}

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Fresh Finds</title>
    <link>https://news.example.com/</link>
    <item>
      <title>新しいインディーズの注目株</title>
      <link>https://news.example.com/articles/1</link>
      <description>  今週の注目アーティストを紹介  </description>
      <pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>タイトルのみの記事</title>
      <link>https://news.example.com/articles/2</link>
    </item>
    <item>
      <title>リンクのない記事</title>
      <description>保存対象外</description>
    </item>
  </channel>
</rss>`

// --- FetchSource テスト ---

// TestFetcher_FetchSource_DirectFeed は直接フィードURLの取り込みを検証する。
// リンクのない記事は除外されること。
func TestFetcher_FetchSource_DirectFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "Playlistr/") {
			t.Errorf("User-Agent = %q, want Playlistr prefix", got)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, testRSS)
	}))
	defer server.Close()

	repo := &mockNewsRepo{}
	f := newTestFetcher(repo)

	inserted, total, err := f.FetchSource(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchSource() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	item := repo.items[0]
	if item.SourceTitle != "Fresh Finds" {
		t.Errorf("SourceTitle = %q, want %q", item.SourceTitle, "Fresh Finds")
	}
	if item.Link != "https://news.example.com/articles/1" {
		t.Errorf("Link = %q", item.Link)
	}
	// サニタイザを通過していること
	if item.Summary != "今週の注目アーティストを紹介" {
		t.Errorf("Summary = %q", item.Summary)
	}
	if item.PublishedAt == nil {
		t.Error("expected PublishedAt to be set")
	}
	if item.ID == "" {
		t.Error("expected generated item ID")
	}
}

// TestFetcher_FetchSource_HTMLPageAutoDiscovery はHTMLページから
// フィードURLが自動検出されることを検証する。
func TestFetcher_FetchSource_HTMLPageAutoDiscovery(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<html><head>
			<link rel="alternate" type="application/rss+xml" href="`+server.URL+`/feed.xml">
		</head><body></body></html>`)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, testRSS)
	})

	repo := &mockNewsRepo{}
	f := newTestFetcher(repo)

	inserted, total, err := f.FetchSource(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("FetchSource() error = %v", err)
	}
	if total != 2 || inserted != 2 {
		t.Errorf("inserted/total = %d/%d, want 2/2", inserted, total)
	}
}

// TestFetcher_FetchSource_CachesResolvedFeedURL は解決済みフィードURLが
// 再利用され、HTMLページへの再アクセスが発生しないことを検証する。
func TestFetcher_FetchSource_CachesResolvedFeedURL(t *testing.T) {
	var pageHits, feedHits int
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pageHits++
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head>
			<link rel="alternate" type="application/rss+xml" href="`+server.URL+`/feed.xml">
		</head><body></body></html>`)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		feedHits++
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, testRSS)
	})

	f := newTestFetcher(&mockNewsRepo{})

	sourceURL := server.URL + "/"
	if _, _, err := f.FetchSource(context.Background(), sourceURL); err != nil {
		t.Fatalf("first FetchSource() error = %v", err)
	}
	if _, _, err := f.FetchSource(context.Background(), sourceURL); err != nil {
		t.Fatalf("second FetchSource() error = %v", err)
	}

	if pageHits != 1 {
		t.Errorf("page hits = %d, want 1", pageHits)
	}
	if feedHits != 2 {
		t.Errorf("feed hits = %d, want 2", feedHits)
	}
}

// TestFetcher_FetchSource_DuplicateItemsNotCounted は既存記事のUPSERTが
// 挿入件数に数えられないことを検証する。
func TestFetcher_FetchSource_DuplicateItemsNotCounted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, testRSS)
	}))
	defer server.Close()

	repo := &mockNewsRepo{
		upsertFn: func(ctx context.Context, item *model.NewsItem) (bool, error) {
			return false, nil // 全件既存
		},
	}
	f := newTestFetcher(repo)

	inserted, total, err := f.FetchSource(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchSource() error = %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0", inserted)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

// TestFetcher_FetchSource_UpsertErrorContinues は一部記事の保存失敗が
// 残りの記事の処理を止めないことを検証する。
func TestFetcher_FetchSource_UpsertErrorContinues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, testRSS)
	}))
	defer server.Close()

	calls := 0
	repo := &mockNewsRepo{
		upsertFn: func(ctx context.Context, item *model.NewsItem) (bool, error) {
			calls++
			if calls == 1 {
				return false, errors.New("db down")
			}
			return true, nil
		},
	}
	f := newTestFetcher(repo)

	inserted, total, err := f.FetchSource(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchSource() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}
}

// TestFetcher_FetchSource_SSRFRejected はSSRF検証に失敗したソースが
// フェッチされないことを検証する。
func TestFetcher_FetchSource_SSRFRejected(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	validator := &mockSSRFValidator{
		validateFn: func(rawURL string) error {
			return errors.New("blocked network")
		},
	}
	f := NewFetcher(&mockNewsRepo{}, validator, &mockSanitizer{}, logger, nil, time.Second, 1024)

	if _, _, err := f.FetchSource(context.Background(), "http://169.254.169.254/feed"); err == nil {
		t.Error("expected error")
	}
}

// TestFetcher_FetchSource_NonOKStatus は非200応答がエラーになることを検証する。
func TestFetcher_FetchSource_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(&mockNewsRepo{})

	if _, _, err := f.FetchSource(context.Background(), server.URL); err == nil {
		t.Error("expected error")
	}
}

// TestConvertGofeedItems_GUIDFallback はLinkがない記事でGUIDがURL形式の場合に
// GUIDがLinkとして使用されることを検証する。
func TestConvertGofeedItems_GUIDFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Fresh Finds</title>
    <item>
      <title>GUIDのみの記事</title>
      <guid>https://news.example.com/articles/guid-only</guid>
    </item>
  </channel>
</rss>`)
	}))
	defer server.Close()

	repo := &mockNewsRepo{}
	f := newTestFetcher(repo)

	_, total, err := f.FetchSource(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchSource() error = %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if repo.items[0].Link != "https://news.example.com/articles/guid-only" {
		t.Errorf("Link = %q", repo.items[0].Link)
	}
}
