// Package spotify はSpotify Web APIのクライアントを提供する。
// トラック・プレイリスト検索、プロフィール取得、再生中トラック取得、
// トップトラック取得を行う。呼び出しには各ユーザーのアクセストークンを使用する。
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/playlistr/internal/model"
)

const (
	// defaultBaseURL はSpotify Web APIのベースURL。
	defaultBaseURL = "https://api.spotify.com/v1"
	// trackSearchLimit はトラック検索の最大取得件数。
	trackSearchLimit = 5
	// playlistSearchLimit はプレイリスト検索の最大取得件数。
	playlistSearchLimit = 10
	// topTracksLimit はトップトラック取得の最大件数。
	topTracksLimit = 5
	// topTracksTimeRange はトップトラック集計の対象期間。
	topTracksTimeRange = "long_term"
)

// MetricsCollector はSpotify API呼び出しのメトリクスを記録するインターフェース。
type MetricsCollector interface {
	ObserveCatalogRequest(operation string, status string, duration time.Duration)
}

// Client はSpotify Web APIのクライアント。
// 全メソッドは失敗時に明示的なエラーを返し、劣化時の挙動は呼び出し元が決定する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsCollector
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClient の新しいインスタンスを生成する。metricsはnil可。
func NewClient(httpClient *http.Client, logger *slog.Logger, metrics MetricsCollector) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		baseURL:    defaultBaseURL,
	}
}

// SetBaseURL はAPIのベースURLを差し替える（テスト用）。
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// trackObject はSpotify APIのトラックレスポンス。
type trackObject struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// playlistObject はSpotify APIのプレイリストレスポンス。
// 検索結果の配列にはnull要素が混入することがあるため、ポインタで受ける。
type playlistObject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Public *bool `json:"public"`
}

// profileObject はSpotify APIのユーザープロフィールレスポンス。
type profileObject struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
	Followers struct {
		Total int `json:"total"`
	} `json:"followers"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// SearchTracks はクエリに一致するトラックを最大5件検索する。
func (c *Client) SearchTracks(ctx context.Context, accessToken, query string) ([]*model.Track, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(trackSearchLimit))

	var result struct {
		Tracks struct {
			Items []trackObject `json:"items"`
		} `json:"tracks"`
	}
	if err := c.getJSON(ctx, accessToken, "search_tracks", "/search?"+q.Encode(), &result); err != nil {
		return nil, err
	}

	tracks := make([]*model.Track, 0, len(result.Tracks.Items))
	for _, item := range result.Tracks.Items {
		tracks = append(tracks, convertTrack(item))
	}
	return tracks, nil
}

// SearchPlaylists はクエリに一致する公開プレイリストを検索する。
// APIは最大10件返すが、非公開およびnull要素は除外される。
func (c *Client) SearchPlaylists(ctx context.Context, accessToken, query string) ([]*model.Playlist, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "playlist")
	q.Set("limit", strconv.Itoa(playlistSearchLimit))

	var result struct {
		Playlists struct {
			Items []*playlistObject `json:"items"`
		} `json:"playlists"`
	}
	if err := c.getJSON(ctx, accessToken, "search_playlists", "/search?"+q.Encode(), &result); err != nil {
		return nil, err
	}

	playlists := make([]*model.Playlist, 0, len(result.Playlists.Items))
	for _, item := range result.Playlists.Items {
		// 公開フラグが明示的にtrueのものだけを通す
		if item == nil || item.Public == nil || !*item.Public {
			continue
		}
		p := &model.Playlist{
			ID:        item.ID,
			Name:      item.Name,
			OwnerName: item.Owner.DisplayName,
			Public:    true,
		}
		if len(item.Images) > 0 {
			p.ImageURL = item.Images[0].URL
		}
		playlists = append(playlists, p)
	}
	return playlists, nil
}

// GetMe は認証済みユーザー自身のプロフィールを取得する。
func (c *Client) GetMe(ctx context.Context, accessToken string) (*model.Profile, error) {
	var result profileObject
	if err := c.getJSON(ctx, accessToken, "get_me", "/me", &result); err != nil {
		return nil, err
	}
	return convertProfile(result), nil
}

// GetUserProfile は指定IDのユーザーのプロフィールを取得する。
func (c *Client) GetUserProfile(ctx context.Context, accessToken, userID string) (*model.Profile, error) {
	var result profileObject
	if err := c.getJSON(ctx, accessToken, "get_user_profile", "/users/"+url.PathEscape(userID), &result); err != nil {
		return nil, err
	}
	return convertProfile(result), nil
}

// GetCurrentlyPlaying は現在再生中のトラックを取得する。
// 何も再生していない場合（204 No Content）は (nil, nil) を返す。
func (c *Client) GetCurrentlyPlaying(ctx context.Context, accessToken string) (*model.NowPlaying, error) {
	start := time.Now()
	resp, err := c.doGet(ctx, accessToken, "/me/player/currently-playing")
	if err != nil {
		c.observe("get_currently_playing", "error", start)
		return nil, err
	}
	defer resp.Body.Close()

	// 204は「何も再生していない」を意味する正常応答
	if resp.StatusCode == http.StatusNoContent {
		c.observe("get_currently_playing", "ok", start)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.observe("get_currently_playing", "error", start)
		return nil, c.statusError("get_currently_playing", resp.StatusCode)
	}

	var result struct {
		Item *trackObject `json:"item"`
	}
	if err := decodeJSON(resp.Body, &result); err != nil {
		c.observe("get_currently_playing", "error", start)
		return nil, err
	}
	c.observe("get_currently_playing", "ok", start)

	if result.Item == nil {
		return nil, nil
	}

	track := convertTrack(*result.Item)
	return &model.NowPlaying{
		Name:        track.Name,
		Artist:      strings.Join(track.Artists, ", "),
		Album:       track.AlbumName,
		ImageURL:    track.AlbumImageURL,
		ExternalURL: track.ExternalURL,
		FetchedAt:   time.Now(),
	}, nil
}

// GetTopTracks は長期集計のトップトラックを最大5件取得する。
func (c *Client) GetTopTracks(ctx context.Context, accessToken string) ([]*model.Track, error) {
	q := url.Values{}
	q.Set("time_range", topTracksTimeRange)
	q.Set("limit", strconv.Itoa(topTracksLimit))

	var result struct {
		Items []trackObject `json:"items"`
	}
	if err := c.getJSON(ctx, accessToken, "get_top_tracks", "/me/top/tracks?"+q.Encode(), &result); err != nil {
		return nil, err
	}

	tracks := make([]*model.Track, 0, len(result.Items))
	for _, item := range result.Items {
		tracks = append(tracks, convertTrack(item))
	}
	return tracks, nil
}

// getJSON はGETリクエストを実行し、200応答のボディをoutへデコードする。
func (c *Client) getJSON(ctx context.Context, accessToken, operation, path string, out any) error {
	start := time.Now()
	resp, err := c.doGet(ctx, accessToken, path)
	if err != nil {
		c.observe(operation, "error", start)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe(operation, "error", start)
		return c.statusError(operation, resp.StatusCode)
	}

	if err := decodeJSON(resp.Body, out); err != nil {
		c.observe(operation, "error", start)
		return err
	}
	c.observe(operation, "ok", start)
	return nil
}

func (c *Client) doGet(ctx context.Context, accessToken, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Spotify APIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Spotify APIの呼び出しに失敗しました: %w", err)
	}
	return resp, nil
}

func (c *Client) statusError(operation string, status int) error {
	c.logger.Error("Spotify APIがエラーステータスを返しました",
		slog.String("operation", operation),
		slog.Int("http_status", status),
	)
	return fmt.Errorf("Spotify APIがステータス %d を返しました", status)
}

func (c *Client) observe(operation, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveCatalogRequest(operation, status, time.Since(start))
	}
}

func decodeJSON(body io.Reader, out any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

func convertTrack(item trackObject) *model.Track {
	t := &model.Track{
		ID:          item.ID,
		Name:        item.Name,
		AlbumName:   item.Album.Name,
		ExternalURL: item.ExternalURLs.Spotify,
	}
	for _, artist := range item.Artists {
		t.Artists = append(t.Artists, artist.Name)
	}
	if len(item.Album.Images) > 0 {
		t.AlbumImageURL = item.Album.Images[0].URL
	}
	return t
}

func convertProfile(item profileObject) *model.Profile {
	p := &model.Profile{
		ID:          item.ID,
		DisplayName: item.DisplayName,
		Email:       item.Email,
		Followers:   item.Followers.Total,
		ExternalURL: item.ExternalURLs.Spotify,
	}
	if len(item.Images) > 0 {
		p.AvatarURL = item.Images[0].URL
	}
	return p
}
