// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// spotify.MetricsCollector、feed.ResolverMetrics、news.FetcherMetricsを実装する。
type Collector struct {
	catalogRequests      *prometheus.CounterVec
	catalogLatency       *prometheus.HistogramVec
	profileCacheHits     prometheus.Counter
	profileCacheMisses   prometheus.Counter
	profileResolveFails  prometheus.Counter
	newsFetches          *prometheus.CounterVec
	newsFetchLatency     prometheus.Histogram
	newsItemsInserted    prometheus.Counter
	postsCreated         prometheus.Counter
	commentsCreated      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		catalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playlistr_catalog_requests_total",
			Help: "カタログAPI呼び出しの合計数（操作・結果別）",
		}, []string{"operation", "status"}),
		catalogLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "playlistr_catalog_latency_seconds",
			Help:    "カタログAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		profileCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playlistr_profile_cache_hits_total",
			Help: "プロフィールキャッシュヒットの合計数",
		}),
		profileCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playlistr_profile_cache_misses_total",
			Help: "プロフィールキャッシュミスの合計数",
		}),
		profileResolveFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playlistr_profile_resolve_failures_total",
			Help: "プロフィール解決失敗の合計数",
		}),
		newsFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playlistr_news_fetch_total",
			Help: "ニュースソースフェッチの合計数（結果別）",
		}, []string{"status"}),
		newsFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "playlistr_news_fetch_latency_seconds",
			Help:    "ニュースソースフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		newsItemsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playlistr_news_items_inserted_total",
			Help: "新規挿入されたニュース記事の合計数",
		}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playlistr_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		commentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playlistr_comments_created_total",
			Help: "作成されたコメントの合計数",
		}),
	}

	reg.MustRegister(
		c.catalogRequests,
		c.catalogLatency,
		c.profileCacheHits,
		c.profileCacheMisses,
		c.profileResolveFails,
		c.newsFetches,
		c.newsFetchLatency,
		c.newsItemsInserted,
		c.postsCreated,
		c.commentsCreated,
	)

	return c
}

// ObserveCatalogRequest はカタログAPI呼び出しの結果とレイテンシを記録する。
func (c *Collector) ObserveCatalogRequest(operation, status string, duration time.Duration) {
	c.catalogRequests.WithLabelValues(operation, status).Inc()
	c.catalogLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncProfileCacheHit はプロフィールキャッシュヒットを記録する。
func (c *Collector) IncProfileCacheHit() {
	c.profileCacheHits.Inc()
}

// IncProfileCacheMiss はプロフィールキャッシュミスを記録する。
func (c *Collector) IncProfileCacheMiss() {
	c.profileCacheMisses.Inc()
}

// IncProfileResolveFailure はプロフィール解決失敗を記録する。
func (c *Collector) IncProfileResolveFailure() {
	c.profileResolveFails.Inc()
}

// ObserveNewsFetch はニュースソースフェッチの結果とレイテンシを記録する。
func (c *Collector) ObserveNewsFetch(sourceURL, status string, duration time.Duration) {
	c.newsFetches.WithLabelValues(status).Inc()
	c.newsFetchLatency.Observe(duration.Seconds())
}

// AddNewsItemsInserted は新規挿入されたニュース記事数を記録する。
func (c *Collector) AddNewsItemsInserted(count int) {
	c.newsItemsInserted.Add(float64(count))
}

// IncPostCreated は投稿作成を記録する。
func (c *Collector) IncPostCreated() {
	c.postsCreated.Inc()
}

// IncCommentCreated はコメント作成を記録する。
func (c *Collector) IncCommentCreated() {
	c.commentsCreated.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
