package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/playlistr/internal/model"
)

// defaultNewsLimit はニュース一覧のデフォルト取得件数。
const defaultNewsLimit = 20

// maxNewsLimit はニュース一覧の最大取得件数。
const maxNewsLimit = 100

// NewsListerInterface はニュースハンドラーが必要とするリポジトリインターフェース。
type NewsListerInterface interface {
	ListRecent(ctx context.Context, limit int) ([]*model.NewsItem, error)
}

// NewsHandler は音楽ニュース一覧のHTTPハンドラー。
type NewsHandler struct {
	lister NewsListerInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(lister NewsListerInterface) *NewsHandler {
	return &NewsHandler{lister: lister}
}

// newsItemResponse はニュース記事のAPIレスポンス。
type newsItemResponse struct {
	ID          string     `json:"id"`
	SourceTitle string     `json:"source_title"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     string     `json:"summary"`
	PublishedAt *time.Time `json:"published_at"`
}

// ListNews は最新の音楽ニュース記事を返す。
// GET /api/news?limit=20
func (h *NewsHandler) ListNews(w http.ResponseWriter, r *http.Request) {
	limit := defaultNewsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitには1以上の整数を指定してください。",
				Category: "validation",
				Action:   "limitパラメータを確認してください。",
			})
			return
		}
		limit = parsed
	}
	if limit > maxNewsLimit {
		limit = maxNewsLimit
	}

	items, err := h.lister.ListRecent(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]newsItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, newsItemResponse{
			ID:          item.ID,
			SourceTitle: item.SourceTitle,
			Title:       item.Title,
			Link:        item.Link,
			Summary:     item.Summary,
			PublishedAt: item.PublishedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]newsItemResponse{
		"items": responses,
	})
}
