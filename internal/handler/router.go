package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plantshop/internal/access"
	"github.com/hitoshi/plantshop/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	AccessPolicy      *access.Policy
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetricsRecorder // nilの場合は記録しない
	MetricsHandler    http.Handler                   // nilの場合は/metricsを公開しない
	HealthChecker     HealthChecker

	// 認証
	AuthService   AuthServiceInterface
	LoginRecorder LoginRecorder
	AuthConfig    AuthHandlerConfig

	// カート・お気に入り
	LedgerService LedgerServiceInterface

	// カタログ
	CatalogService CatalogServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 管理画面
	Stats StatsProvider
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全ルート共通のミドルウェアの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Session → Logging → RouteAuthorizer
//
// RouteAuthorizerはページ経路（/admin, /account）をハンドラーより前で制御する。
// /api配下はさらに RateLimit(General) を通り、認証必須のルートは RequireSession → CSRF を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := deps.AccessPolicy
	if policy == nil {
		policy = access.DefaultPolicy()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRouteAuthorizer(policy))

	authHandler := NewAuthHandler(deps.AuthService, deps.LoginRecorder, deps.AuthConfig)
	ledgerHandler := NewLedgerHandler(deps.LedgerService)
	catalogHandler := NewCatalogHandler(deps.CatalogService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)
	pageHandler := NewPageHandler(deps.Stats, deps.LedgerService)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証ルート ---
	r.Route("/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- ページ経路（アクセス制御はRouteAuthorizerが行う） ---
	r.Get("/login", pageHandler.Login)
	r.Get("/admin", pageHandler.AdminHome)
	r.Get("/admin/dashboard", pageHandler.AdminDashboard)
	r.Get("/account", pageHandler.Account)

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// カタログ閲覧（認証不要）
		r.Get("/plants", catalogHandler.ListPlants)
		r.Get("/plants/{id}", catalogHandler.GetPlant)

		// 認証が必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", ledgerHandler.ListCart)
				r.Post("/", ledgerHandler.AddToCart)
				r.Delete("/", ledgerHandler.RemoveFromCart)
				r.Post("/quantity", ledgerHandler.UpdateCartQuantity)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", ledgerHandler.ListWishlist)
				r.Post("/", ledgerHandler.AddToWishlist)
				r.Delete("/", ledgerHandler.RemoveFromWishlist)
				r.Get("/{plantId}", ledgerHandler.CheckWishlist)
			})

			r.Delete("/users/me", userHandler.Withdraw)
		})
	})

	return r
}
