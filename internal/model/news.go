// Package model はドメインモデルを定義する。
package model

import "time"

// NewsItem は音楽ニュースフィードから取り込んだ記事を表す。
// フィードのトップページ横に「Fresh Finds」として表示される。
type NewsItem struct {
	ID          string
	SourceTitle string
	Title       string
	Link        string
	Summary     string // サニタイズ済みHTML
	PublishedAt *time.Time
	FetchedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParsedNewsItem はフィードパーサーから取得した未保存の記事データを表す。
// ワーカーがニュースソースをパースした後、NewsUpsertServiceに渡される。
type ParsedNewsItem struct {
	SourceTitle string
	Title       string
	Link        string
	Summary     string // 未サニタイズ
	PublishedAt *time.Time
}
