package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plantshop/internal/model"
)

// LedgerServiceInterface はカート・お気に入りハンドラーが必要とするサービスインターフェース。
// ledger.Serviceが実装する。
type LedgerServiceInterface interface {
	AddToCart(ctx context.Context, ownerID, plantID string, quantity int) (*model.CartEntry, error)
	UpdateQuantity(ctx context.Context, callerID, entryID string, quantity int) (*model.CartEntry, error)
	RemoveFromCart(ctx context.Context, ownerID, entryID string) error
	ListCart(ctx context.Context, ownerID string) (*model.CartSummary, error)

	AddToWishlist(ctx context.Context, ownerID, plantID string) (*model.WishlistEntry, error)
	RemoveFromWishlist(ctx context.Context, ownerID, plantID string) error
	IsInWishlist(ctx context.Context, ownerID, plantID string) (bool, error)
	ListWishlist(ctx context.Context, ownerID string) ([]model.WishlistLine, error)
}

// LedgerHandler はカートとお気に入りのHTTPハンドラー。
type LedgerHandler struct {
	service LedgerServiceInterface
}

// NewLedgerHandler はLedgerHandlerを生成する。
func NewLedgerHandler(service LedgerServiceInterface) *LedgerHandler {
	return &LedgerHandler{service: service}
}

type addToCartRequest struct {
	PlantID       string `json:"plantId"`
	CatalogItemID string `json:"catalogItemId"`
	Quantity      *int   `json:"quantity"`
}

type updateQuantityRequest struct {
	CartEntryID string `json:"cartEntryId"`
	Quantity    *int   `json:"quantity"`
}

type wishlistRequest struct {
	PlantID       string `json:"plantId"`
	CatalogItemID string `json:"catalogItemId"`
}

// plantRef はplantIdを優先し、無ければ旧名のcatalogItemIdを返す。
func plantRef(plantID, catalogItemID string) string {
	if plantID != "" {
		return plantID
	}
	return catalogItemID
}

type cartEntryResponse struct {
	ID        string    `json:"id"`
	PlantID   string    `json:"plantId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type cartLineResponse struct {
	cartEntryResponse
	PlantName string      `json:"plantName"`
	UnitPrice model.Money `json:"unitPrice"`
	Subtotal  model.Money `json:"subtotal"`
	InStock   bool        `json:"inStock"`
	ImageURL  string      `json:"imageUrl,omitempty"`
}

type cartResponse struct {
	Items      []cartLineResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice model.Money        `json:"totalPrice"`
}

type wishlistEntryResponse struct {
	ID      string    `json:"id"`
	PlantID string    `json:"plantId"`
	AddedAt time.Time `json:"addedAt"`
}

type wishlistLineResponse struct {
	wishlistEntryResponse
	PlantName string      `json:"plantName"`
	Price     model.Money `json:"price"`
	InStock   bool        `json:"inStock"`
	ImageURL  string      `json:"imageUrl,omitempty"`
}

type wishlistResponse struct {
	Items []wishlistLineResponse `json:"items"`
}

func toCartEntryResponse(e *model.CartEntry) cartEntryResponse {
	return cartEntryResponse{
		ID:        e.ID,
		PlantID:   e.PlantID,
		Quantity:  e.Quantity,
		AddedAt:   e.AddedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toCartResponse(summary *model.CartSummary) cartResponse {
	items := make([]cartLineResponse, 0, len(summary.Lines))
	for i := range summary.Lines {
		l := &summary.Lines[i]
		items = append(items, cartLineResponse{
			cartEntryResponse: toCartEntryResponse(&l.CartEntry),
			PlantName:         l.PlantName,
			UnitPrice:         l.UnitPrice,
			Subtotal:          l.Subtotal(),
			InStock:           l.InStock,
			ImageURL:          l.ImageURL,
		})
	}
	return cartResponse{
		Items:      items,
		TotalItems: summary.TotalItems,
		TotalPrice: summary.TotalPrice,
	}
}

func toWishlistEntryResponse(e *model.WishlistEntry) wishlistEntryResponse {
	return wishlistEntryResponse{ID: e.ID, PlantID: e.PlantID, AddedAt: e.AddedAt}
}

// --- カート ---

// ListCart はカートの内容と合計を返す。
// GET /api/cart
func (h *LedgerHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	summary, err := h.service.ListCart(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(summary))
}

// AddToCart はカートに商品を追加する。quantity省略時は1。
// POST /api/cart
func (h *LedgerHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	req.PlantID = plantRef(req.PlantID, req.CatalogItemID)
	if req.PlantID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("plantIdを指定してください"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	entry, err := h.service.AddToCart(r.Context(), user.ID, req.PlantID, quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartEntryResponse(entry))
}

// UpdateCartQuantity はカート項目の数量を設定する。
// POST /api/cart/quantity
func (h *LedgerHandler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	var req updateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if req.CartEntryID == "" || req.Quantity == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("cartEntryIdとquantityを指定してください"))
		return
	}

	entry, err := h.service.UpdateQuantity(r.Context(), user.ID, req.CartEntryID, *req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartEntryResponse(entry))
}

// RemoveFromCart はカート項目を削除する。
// DELETE /api/cart?cartEntryId=
func (h *LedgerHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	entryID := r.URL.Query().Get("cartEntryId")
	if entryID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("cartEntryIdを指定してください"))
		return
	}

	if err := h.service.RemoveFromCart(r.Context(), user.ID, entryID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// --- お気に入り ---

// ListWishlist はお気に入り一覧を返す。
// GET /api/wishlist
func (h *LedgerHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	lines, err := h.service.ListWishlist(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]wishlistLineResponse, 0, len(lines))
	for i := range lines {
		l := &lines[i]
		items = append(items, wishlistLineResponse{
			wishlistEntryResponse: toWishlistEntryResponse(&l.WishlistEntry),
			PlantName:             l.PlantName,
			Price:                 l.Price,
			InStock:               l.InStock,
			ImageURL:              l.ImageURL,
		})
	}
	writeJSON(w, http.StatusOK, wishlistResponse{Items: items})
}

// AddToWishlist はお気に入りに商品を追加する。登録済みの場合は既存の項目を返す。
// POST /api/wishlist
func (h *LedgerHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	var req wishlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	req.PlantID = plantRef(req.PlantID, req.CatalogItemID)
	if req.PlantID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("plantIdを指定してください"))
		return
	}

	entry, err := h.service.AddToWishlist(r.Context(), user.ID, req.PlantID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWishlistEntryResponse(entry))
}

// RemoveFromWishlist はお気に入りから商品を削除する。
// DELETE /api/wishlist?plantId= （catalogItemIdも受け付ける）
func (h *LedgerHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	q := r.URL.Query()
	plantID := q.Get("plantId")
	if plantID == "" {
		plantID = q.Get("catalogItemId")
	}
	if plantID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("plantIdを指定してください"))
		return
	}

	if err := h.service.RemoveFromWishlist(r.Context(), user.ID, plantID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// CheckWishlist は商品がお気に入りに登録済みかを返す。
// GET /api/wishlist/{plantId}
func (h *LedgerHandler) CheckWishlist(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	in, err := h.service.IsInWishlist(r.Context(), user.ID, chi.URLParam(r, "plantId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inWishlist": in})
}
