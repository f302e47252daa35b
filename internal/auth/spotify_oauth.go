package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultSpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	defaultSpotifyTokenURL = "https://accounts.spotify.com/api/token"
	defaultSpotifyMeURL    = "https://api.spotify.com/v1/me"

	// spotifyScopes はサインイン時に要求するスコープ。
	// プロフィール・再生状態・トップトラックの読み取りに必要。
	spotifyScopes = "user-read-email user-read-private user-top-read user-read-playback-state"
)

// SpotifyOAuthConfig はSpotify OAuthプロバイダーの設定。
type SpotifyOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
	MeURL    string
}

// SpotifyOAuthProvider はSpotify OAuth 2.0（認可コードフロー）による認証を提供する。
type SpotifyOAuthProvider struct {
	config SpotifyOAuthConfig
}

// NewSpotifyOAuthProvider はSpotifyOAuthProviderを生成する。
func NewSpotifyOAuthProvider(config SpotifyOAuthConfig) *SpotifyOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultSpotifyAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultSpotifyTokenURL
	}
	if config.MeURL == "" {
		config.MeURL = defaultSpotifyMeURL
	}
	return &SpotifyOAuthProvider{config: config}
}

// GetLoginURL はSpotify OAuthの認証URLを生成する。
func (p *SpotifyOAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {spotifyScopes},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// spotifyTokenResponse はSpotifyのトークンエンドポイントのレスポンス。
type spotifyTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// spotifyMeResponse はSpotifyの /me エンドポイントのレスポンス。
type spotifyMeResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *SpotifyOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthResult, error) {
	// 1. 認可コードをアクセストークンに交換
	tokenResp, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// 2. アクセストークンでユーザー情報を取得
	me, err := p.fetchMe(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	avatarURL := ""
	if len(me.Images) > 0 {
		avatarURL = me.Images[0].URL
	}

	return &OAuthResult{
		UserInfo: OAuthUserInfo{
			ProviderUserID: me.ID,
			Email:          me.Email,
			DisplayName:    me.DisplayName,
			AvatarURL:      avatarURL,
			Provider:       "spotify",
		},
		AccessToken:  tokenResp.AccessToken,
		ExpiresInSec: tokenResp.ExpiresIn,
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
// Spotifyのトークンエンドポイントはclient_id/client_secretをBasic認証で受け取る。
func (p *SpotifyOAuthProvider) exchangeToken(ctx context.Context, code string) (*spotifyTokenResponse, error) {
	data := url.Values{
		"code":         {code},
		"redirect_uri": {p.config.RedirectURL},
		"grant_type":   {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	credentials := base64.StdEncoding.EncodeToString([]byte(p.config.ClientID + ":" + p.config.ClientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp spotifyTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, nil
}

// fetchMe はアクセストークンでSpotifyのユーザー情報を取得する。
func (p *SpotifyOAuthProvider) fetchMe(ctx context.Context, accessToken string) (*spotifyMeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.MeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var me spotifyMeResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if me.ID == "" {
		return nil, fmt.Errorf("empty user ID in user info response")
	}

	return &me, nil
}

// compile-time interface check
var _ OAuthProvider = (*SpotifyOAuthProvider)(nil)
