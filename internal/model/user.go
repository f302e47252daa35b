// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// SpotifyUserIDはカタログAPI上の外部ユーザーID（プロフィール解決に使用）。
type User struct {
	ID            string
	SpotifyUserID string
	Email         string
	DisplayName   string
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 現状はSpotifyのみだが、複数IdPに対応可能な構造にしている。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// カタログAPIへの読み取りはセッションが保持するBearerトークンで認可される。
// トークンのリフレッシュは行わない（プロバイダー既定の有効期間のまま）。
type Session struct {
	ID             string
	UserID         string
	SpotifyUserID  string
	AccessToken    string
	TokenExpiresAt time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}
