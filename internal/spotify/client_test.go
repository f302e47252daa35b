package spotify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func newTestClient(server *httptest.Server) *Client {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	c := NewClient(server.Client(), logger, nil)
	c.SetBaseURL(server.URL)
	return c
}

// TestClient_SearchTracks_Success はトラック検索の正常系を検証する。
func TestClient_SearchTracks_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/search")
		}
		if got := r.URL.Query().Get("type"); got != "track" {
			t.Errorf("type = %q, want %q", got, "track")
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want %q", got, "5")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token-1")
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"tracks": {
				"items": [
					{
						"id": "track-1",
						"name": "Nightfall",
						"artists": [{"name": "Artist A"}, {"name": "Artist B"}],
						"album": {
							"name": "Evening Album",
							"images": [{"url": "https://img.example.com/a.jpg"}]
						},
						"external_urls": {"spotify": "https://open.spotify.com/track/track-1"}
					}
				]
			}
		}`)
	}))
	defer server.Close()

	c := newTestClient(server)

	tracks, err := c.SearchTracks(context.Background(), "token-1", "nightfall")
	if err != nil {
		t.Fatalf("SearchTracks() error = %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("len(tracks) = %d, want 1", len(tracks))
	}

	got := tracks[0]
	if got.ID != "track-1" {
		t.Errorf("ID = %q, want %q", got.ID, "track-1")
	}
	if !reflect.DeepEqual(got.Artists, []string{"Artist A", "Artist B"}) {
		t.Errorf("Artists = %v, want %v", got.Artists, []string{"Artist A", "Artist B"})
	}
	if got.AlbumImageURL != "https://img.example.com/a.jpg" {
		t.Errorf("AlbumImageURL = %q, want %q", got.AlbumImageURL, "https://img.example.com/a.jpg")
	}
}

// TestClient_SearchPlaylists_FiltersPrivateAndNull は
// 非公開プレイリストとnull要素が検索結果から除外されることを検証する。
func TestClient_SearchPlaylists_FiltersPrivateAndNull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"playlists": {
				"items": [
					{"id": "pl-1", "name": "Public Mix", "owner": {"display_name": "Alice"}, "public": true},
					{"id": "pl-2", "name": "Private Mix", "owner": {"display_name": "Bob"}, "public": false},
					null,
					{"id": "pl-3", "name": "No Flag", "owner": {"display_name": "Carol"}}
				]
			}
		}`)
	}))
	defer server.Close()

	c := newTestClient(server)

	playlists, err := c.SearchPlaylists(context.Background(), "token-1", "mix")
	if err != nil {
		t.Fatalf("SearchPlaylists() error = %v", err)
	}
	if len(playlists) != 1 {
		t.Fatalf("len(playlists) = %d, want 1", len(playlists))
	}
	if playlists[0].ID != "pl-1" {
		t.Errorf("ID = %q, want %q", playlists[0].ID, "pl-1")
	}
	if !playlists[0].Public {
		t.Error("expected Public = true")
	}
}

// TestClient_GetMe_Success は自分のプロフィール取得を検証する。
func TestClient_GetMe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/me")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "spotify-user-1",
			"display_name": "Hitoshi",
			"email": "hitoshi@example.com",
			"images": [{"url": "https://img.example.com/avatar.jpg"}],
			"followers": {"total": 42},
			"external_urls": {"spotify": "https://open.spotify.com/user/spotify-user-1"}
		}`)
	}))
	defer server.Close()

	c := newTestClient(server)

	profile, err := c.GetMe(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetMe() error = %v", err)
	}
	if profile.ID != "spotify-user-1" {
		t.Errorf("ID = %q, want %q", profile.ID, "spotify-user-1")
	}
	if profile.Followers != 42 {
		t.Errorf("Followers = %d, want 42", profile.Followers)
	}
	if profile.AvatarURL != "https://img.example.com/avatar.jpg" {
		t.Errorf("AvatarURL = %q", profile.AvatarURL)
	}
}

// TestClient_GetUserProfile_EscapesID はユーザーIDがパスエスケープされることを検証する。
func TestClient_GetUserProfile_EscapesID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/users/user%2Fwith%2Fslash" {
			t.Errorf("path = %q, want %q", r.URL.EscapedPath(), "/users/user%2Fwith%2Fslash")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "user/with/slash", "display_name": "X"}`)
	}))
	defer server.Close()

	c := newTestClient(server)

	profile, err := c.GetUserProfile(context.Background(), "token-1", "user/with/slash")
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	if profile.ID != "user/with/slash" {
		t.Errorf("ID = %q", profile.ID)
	}
}

// TestClient_GetCurrentlyPlaying_NoContent は
// 何も再生していない場合（204）に (nil, nil) が返ることを検証する。
func TestClient_GetCurrentlyPlaying_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(server)

	nowPlaying, err := c.GetCurrentlyPlaying(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetCurrentlyPlaying() error = %v", err)
	}
	if nowPlaying != nil {
		t.Errorf("nowPlaying = %+v, want nil", nowPlaying)
	}
}

// TestClient_GetCurrentlyPlaying_NullItem はitemがnullの場合に (nil, nil) が返ることを検証する。
func TestClient_GetCurrentlyPlaying_NullItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"item": null}`)
	}))
	defer server.Close()

	c := newTestClient(server)

	nowPlaying, err := c.GetCurrentlyPlaying(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetCurrentlyPlaying() error = %v", err)
	}
	if nowPlaying != nil {
		t.Errorf("nowPlaying = %+v, want nil", nowPlaying)
	}
}

// TestClient_GetCurrentlyPlaying_Success は再生中トラックの取得を検証する。
// 複数アーティストはカンマ区切りで結合されること。
func TestClient_GetCurrentlyPlaying_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/player/currently-playing" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"item": {
				"id": "track-1",
				"name": "Nightfall",
				"artists": [{"name": "Artist A"}, {"name": "Artist B"}],
				"album": {"name": "Evening Album", "images": [{"url": "https://img.example.com/a.jpg"}]},
				"external_urls": {"spotify": "https://open.spotify.com/track/track-1"}
			}
		}`)
	}))
	defer server.Close()

	c := newTestClient(server)

	nowPlaying, err := c.GetCurrentlyPlaying(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetCurrentlyPlaying() error = %v", err)
	}
	if nowPlaying == nil {
		t.Fatal("expected now playing track")
	}
	if nowPlaying.Artist != "Artist A, Artist B" {
		t.Errorf("Artist = %q, want %q", nowPlaying.Artist, "Artist A, Artist B")
	}
	if nowPlaying.FetchedAt.IsZero() {
		t.Error("expected FetchedAt to be set")
	}
}

// TestClient_GetTopTracks_Params はトップトラック取得のパラメータを検証する。
func TestClient_GetTopTracks_Params(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/top/tracks" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("time_range"); got != "long_term" {
			t.Errorf("time_range = %q, want %q", got, "long_term")
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want %q", got, "5")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items": [{"id": "t1", "name": "A"}, {"id": "t2", "name": "B"}]}`)
	}))
	defer server.Close()

	c := newTestClient(server)

	tracks, err := c.GetTopTracks(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetTopTracks() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("len(tracks) = %d, want 2", len(tracks))
	}
}

// TestClient_ErrorStatus は非200応答がエラーとして返ることを検証する。
func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server)

	if _, err := c.SearchTracks(context.Background(), "token-1", "x"); err == nil {
		t.Error("SearchTracks: expected error on 429")
	}
	if _, err := c.GetMe(context.Background(), "token-1"); err == nil {
		t.Error("GetMe: expected error on 429")
	}
	if _, err := c.GetCurrentlyPlaying(context.Background(), "token-1"); err == nil {
		t.Error("GetCurrentlyPlaying: expected error on 429")
	}
}
