package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/plantshop/internal/access"
	"github.com/hitoshi/plantshop/internal/model"
)

// StatsProvider は管理画面の集計値を提供するインターフェース。
// repository.StatsRepositoryが実装する。
type StatsProvider interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
}

// CartSummarizer はアカウント画面のカート要約を提供するインターフェース。
type CartSummarizer interface {
	ListCart(ctx context.Context, ownerID string) (*model.CartSummary, error)
}

// PageHandler はページ経路のハンドラー。
// アクセス制御はNewRouteAuthorizerが前段で行うため、ここでは認可判定をしない。
type PageHandler struct {
	stats StatsProvider
	carts CartSummarizer
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(stats StatsProvider, carts CartSummarizer) *PageHandler {
	return &PageHandler{stats: stats, carts: carts}
}

type pageResponse struct {
	Page string        `json:"page"`
	User *userResponse `json:"user,omitempty"`
}

type loginPageResponse struct {
	Page     string `json:"page"`
	ReturnTo string `json:"returnTo"`
}

type dashboardResponse struct {
	Users         int `json:"users"`
	Customers     int `json:"customers"`
	Admins        int `json:"admins"`
	Plants        int `json:"plants"`
	OutOfStock    int `json:"outOfStock"`
	CartEntries   int `json:"cartEntries"`
	WishlistItems int `json:"wishlistItems"`
}

type accountResponse struct {
	Page string       `json:"page"`
	User userResponse `json:"user"`
	Cart cartResponse `json:"cart"`
}

// Login はログイン画面。ログイン後の遷移先を検証して返す。
// GET /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, loginPageResponse{
		Page:     "login",
		ReturnTo: access.SafeReturnTo(r.URL.Query().Get("returnTo"), access.DefaultCustomerHome),
	})
}

// AdminHome は管理画面トップ。
// GET /admin
func (h *PageHandler) AdminHome(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	resp := toUserResponse(user)
	writeJSON(w, http.StatusOK, pageResponse{Page: "admin", User: &resp})
}

// AdminDashboard はユーザー数・商品数などの集計を返す。
// GET /admin/dashboard
func (h *PageHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Users:         stats.Users,
		Customers:     stats.Customers,
		Admins:        stats.Admins,
		Plants:        stats.Plants,
		OutOfStock:    stats.OutOfStock,
		CartEntries:   stats.CartEntries,
		WishlistItems: stats.WishlistItems,
	})
}

// Account は一般ユーザーのアカウント画面。プロフィールとカートの要約を返す。
// GET /account
func (h *PageHandler) Account(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	summary, err := h.carts.ListCart(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		Page: "account",
		User: toUserResponse(user),
		Cart: toCartResponse(summary),
	})
}
