package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cookingstore/internal/middleware"
)

// SessionManager はルーターが必要とするセッション操作をまとめたもの。*session.Managerが満たす。
type SessionManager interface {
	middleware.SessionHydrator
	SessionServiceInterface
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// セッション
	Sessions            SessionManager
	SessionCookie       middleware.SessionCookieConfig
	SessionAwaitTimeout time.Duration

	// ミドルウェア依存
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	HSTS              bool

	// 認証
	AuthConfig AuthHandlerConfig

	// 画面・操作
	Views   ViewServiceInterface
	Recipes RecipeServiceInterface

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	StaticDir      string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS
//	  → SessionResolver → CSRF → RateLimit(General)   (/auth/*, /api/*)
//
// /health と /metrics はセッション解決の外に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authConfig := deps.AuthConfig
	if authConfig.SessionCookie == (middleware.SessionCookieConfig{}) {
		authConfig.SessionCookie = deps.SessionCookie
	}
	authHandler := NewAuthHandler(deps.Sessions, authConfig)
	viewHandler := NewViewHandler(deps.Views)
	recipeHandler := NewRecipeHandler(deps.Recipes)

	requireUser := middleware.RequireUser(LoginPath)
	adminGuard := middleware.NewAdminGuard(deps.AuthConfig.AdminGroup, LoginPath)

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionResolver(deps.Sessions, deps.SessionCookie, deps.SessionAwaitTimeout))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.Login)
			r.Get("/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)
		})

		r.Route("/api", func(r chi.Router) {
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

			// 画面
			r.Get("/views/home", viewHandler.Home)
			r.With(requireUser).Get("/views/favorites", viewHandler.Favorites)
			r.With(requireUser).Get("/views/my-recipes", viewHandler.MyRecipes)
			r.With(requireUser).Get("/views/profile", viewHandler.Profile)
			r.With(adminGuard).Get("/admin/users", viewHandler.AdminUsers)

			// レシピ
			r.Route("/recipes", func(r chi.Router) {
				r.With(requireUser).Post("/", recipeHandler.CreateRecipe)

				r.Route("/{id}", func(r chi.Router) {
					r.With(requireUser).Delete("/", recipeHandler.DeleteRecipe)

					r.Get("/reviews", recipeHandler.ListReviews)
					r.With(requireUser).Post("/reviews", recipeHandler.SubmitReview)

					r.With(requireUser).Get("/rating", recipeHandler.GetRating)
					r.With(requireUser).Put("/rating", recipeHandler.PutRating)
				})
			})

			// お気に入り
			r.Route("/favorites/{id}", func(r chi.Router) {
				r.Use(requireUser)
				r.Put("/", recipeHandler.AddFavorite)
				r.Delete("/", recipeHandler.RemoveFavorite)
			})

			// チャット（専用レート制限を追加）
			r.With(deps.RateLimiter.ChatMiddleware()).Post("/chat", recipeHandler.Chat)
		})
	})

	if deps.StaticDir != "" {
		r.Handle("/*", NewSPAHandler(deps.StaticDir))
	}

	return r
}
