// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はカタログAPIから取得した外部ユーザープロフィールを表す。
// 本アプリが所有するデータではなく、読み取り専用。
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatar_url"`
	Followers   int    `json:"followers"`
	ExternalURL string `json:"external_url"`
}

// UnknownDisplayName はプロフィール解決に失敗した場合の表示名。
const UnknownDisplayName = "Unknown"

// UnknownProfile はプロフィール解決失敗時のセンチネルを生成する。
func UnknownProfile(userID string) *Profile {
	return &Profile{
		ID:          userID,
		DisplayName: UnknownDisplayName,
	}
}

// Track はカタログAPIの検索/トップトラックから正規化した曲情報を表す。
type Track struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Artists       []string `json:"artists"`
	AlbumName     string   `json:"album_name"`
	AlbumImageURL string   `json:"album_image_url"`
	ExternalURL   string   `json:"external_url"`
}

// Playlist はカタログAPIの検索から正規化したプレイリスト情報を表す。
type Playlist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
	ImageURL  string `json:"image_url"`
	Public    bool   `json:"public"`
}

// NowPlaying は現在再生中の曲を表す。
// 何も再生していない場合はnilとして扱う（HTTP 204）。
type NowPlaying struct {
	Name        string    `json:"name"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	ImageURL    string    `json:"image_url"`
	ExternalURL string    `json:"external_url"`
	FetchedAt   time.Time `json:"fetched_at"`
}
