// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidPostType  = "INVALID_POST_TYPE"
	ErrCodeInvalidSpotifyID = "INVALID_SPOTIFY_ID"
	ErrCodePostNotFound     = "POST_NOT_FOUND"
	ErrCodeEmptyComment     = "EMPTY_COMMENT"
	ErrCodeEmptyQuery       = "EMPTY_QUERY"
	ErrCodeCatalogFailed    = "CATALOG_FAILED"
	ErrCodeProfileNotFound  = "PROFILE_NOT_FOUND"
	ErrCodeSessionExpired   = "SESSION_EXPIRED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// NewInvalidPostTypeError は投稿種類が不正な場合のエラーを生成する。
func NewInvalidPostTypeError(t string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPostType,
		Message:  fmt.Sprintf("無効な投稿種類です: %s", t),
		Category: "validation",
		Action:   "typeには song または playlist を指定してください。",
	}
}

// NewInvalidSpotifyIDError はカタログアイテムIDが不正な場合のエラーを生成する。
func NewInvalidSpotifyIDError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSpotifyID,
		Message:  "共有するカタログアイテムが選択されていません。",
		Category: "validation",
		Action:   "検索結果から曲またはプレイリストを選択してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "post",
		Action:   "投稿IDを確認してください。",
	}
}

// NewEmptyCommentError はコメント本文が空の場合のエラーを生成する。
func NewEmptyCommentError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyComment,
		Message:  "コメント本文が空です。",
		Category: "validation",
		Action:   "コメントを入力してから送信してください。",
	}
}

// NewEmptyQueryError は検索クエリが空の場合のエラーを生成する。
func NewEmptyQueryError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyQuery,
		Message:  "検索クエリが空です。",
		Category: "validation",
		Action:   "検索キーワードを入力してください。",
	}
}

// NewCatalogFailedError はカタログAPI呼び出し失敗エラーを生成する。
func NewCatalogFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeCatalogFailed,
		Message:  fmt.Sprintf("カタログAPIの呼び出しに失敗しました: %s", reason),
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("指定されたユーザープロフィールが見つかりません: %s", userID),
		Category: "catalog",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewSessionExpiredError はセッション/トークン期限切れエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
