package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plantshop/internal/model"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	List(ctx context.Context, filter model.PlantFilter) ([]*model.Plant, error)
	Get(ctx context.Context, id string) (*model.Plant, error)
}

// CatalogHandler は商品閲覧のHTTPハンドラー。認証は不要。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type plantResponse struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Price         model.Money `json:"price"`
	InStock       bool        `json:"inStock"`
	StockQuantity int         `json:"stockQuantity"`
	Category      string      `json:"category"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type plantListResponse struct {
	Items  []plantResponse `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toPlantResponse(p *model.Plant) plantResponse {
	return plantResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		InStock:       p.InStock,
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
		ImageURL:      p.ImageURL,
		CreatedAt:     p.CreatedAt,
	}
}

// ListPlants は商品一覧を返す。
// GET /api/plants?category=&inStock=true&limit=&offset=
func (h *CatalogHandler) ListPlants(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePlantFilter(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	plants, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]plantResponse, 0, len(plants))
	for _, p := range plants {
		items = append(items, toPlantResponse(p))
	}
	writeJSON(w, http.StatusOK, plantListResponse{Items: items, Limit: filter.Limit, Offset: filter.Offset})
}

// GetPlant は商品詳細を返す。
// GET /api/plants/{id}
func (h *CatalogHandler) GetPlant(w http.ResponseWriter, r *http.Request) {
	plant, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlantResponse(plant))
}

// parsePlantFilter はクエリパラメータから絞り込み条件を組み立てる。
func parsePlantFilter(r *http.Request) (model.PlantFilter, error) {
	q := r.URL.Query()
	filter := model.PlantFilter{Category: q.Get("category")}

	if v := q.Get("inStock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, model.NewValidationError("inStockにはtrueまたはfalseを指定してください")
		}
		filter.InStockOnly = b
	}
	for _, p := range []struct {
		key string
		dst *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, model.NewValidationError(p.key + "には0以上の整数を指定してください")
		}
		*p.dst = n
	}
	return filter, nil
}
