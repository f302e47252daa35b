// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// PostType は投稿の種類（曲/プレイリスト）を表す。
// 種類によって埋め込みプレイヤーのURLと高さが変わる。
type PostType string

const (
	// PostTypeSong は曲の共有投稿。
	PostTypeSong PostType = "song"
	// PostTypePlaylist はプレイリストの共有投稿。
	PostTypePlaylist PostType = "playlist"
)

// IsValid はPostTypeが定義済みの値かを検証する。
func (t PostType) IsValid() bool {
	return t == PostTypeSong || t == PostTypePlaylist
}

// Post はユーザーによる曲/プレイリストの共有投稿を表す。
// 作成後は不変。UserIDはカタログAPI上の外部ユーザーID。
// TagsはUI入力のままのカンマ区切り文字列として保存する。
type Post struct {
	ID        string
	UserID    string
	SpotifyID string
	Type      PostType
	Caption   string
	Tags      string
	SharedAt  time.Time
}

// embedBaseURL は埋め込みプレイヤーのベースURL。
const embedBaseURL = "https://open.spotify.com/embed"

// EmbedURL は投稿種類に応じた埋め込みプレイヤーのURLを返す。
func (p *Post) EmbedURL() string {
	if p.Type == PostTypePlaylist {
		return embedBaseURL + "/playlist/" + p.SpotifyID
	}
	return embedBaseURL + "/track/" + p.SpotifyID
}

// Comment は投稿へのコメントを表す。
// ちょうど1つのPostに属する。スレッド内ではshared_at昇順で表示する。
type Comment struct {
	CommentID string
	PostID    string
	UserID    string
	Comment   string
	SharedAt  time.Time
}

// ParseTags はカンマ区切りのタグ文字列を正規化済みタグのスライスに変換する。
// 各タグは前後の空白を除去し、内部の空白も取り除いた上で小文字化する。
// 空要素は除外する。入力が空の場合はnilを返す。
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var tags []string
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.Join(strings.Fields(part), ""))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

// TagChips はタグ文字列をUI表示用のチップ（"#"付き）のスライスに変換する。
// 例: "Chill, Evening" → ["#chill", "#evening"]
func TagChips(raw string) []string {
	tags := ParseTags(raw)
	if len(tags) == 0 {
		return nil
	}

	chips := make([]string, len(tags))
	for i, tag := range tags {
		chips[i] = "#" + tag
	}
	return chips
}
