package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/cookingstore/internal/middleware"
	"github.com/hitoshi/cookingstore/internal/session"
	"github.com/hitoshi/cookingstore/internal/view"
)

// ViewServiceInterface は画面単位のビューモデルを組み立てるサービス。*view.Serviceが満たす。
type ViewServiceInterface interface {
	Home(ctx context.Context, sid string, st session.State, req view.HomeRequest) (*view.HomePage, error)
	Favorites(ctx context.Context, sid string, st session.State) (*view.FavoritesPage, error)
	MyRecipes(ctx context.Context, st session.State) (*view.MyRecipesPage, error)
	Profile(ctx context.Context, sid string, st session.State) (*view.ProfilePage, error)
	Admin(ctx context.Context, st session.State, query string) (*view.AdminPage, error)
}

// ViewHandler は画面ごとのビューモデルを返すHTTPハンドラー。
type ViewHandler struct {
	service ViewServiceInterface
}

// NewViewHandler はViewHandlerを生成する。
func NewViewHandler(service ViewServiceInterface) *ViewHandler {
	return &ViewHandler{service: service}
}

// Home はトップ画面を返す。未ログインでも閲覧できる。
// GET /api/views/home?lastKey=xxx&category=yyy
func (h *ViewHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	page, err := h.service.Home(ctx, middleware.SessionIDFromContext(ctx), middleware.StateFromContext(ctx), view.HomeRequest{
		LastKey:  q.Get("lastKey"),
		Category: q.Get("category"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Favorites はお気に入り画面を返す。
// GET /api/views/favorites
func (h *ViewHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.service.Favorites(ctx, middleware.SessionIDFromContext(ctx), middleware.StateFromContext(ctx))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// MyRecipes は自分が投稿したレシピの画面を返す。
// GET /api/views/my-recipes
func (h *ViewHandler) MyRecipes(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.MyRecipes(r.Context(), middleware.StateFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Profile はプロフィール画面を返す。
// GET /api/views/profile
func (h *ViewHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.service.Profile(ctx, middleware.SessionIDFromContext(ctx), middleware.StateFromContext(ctx))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AdminUsers は管理画面のユーザー一覧を返す。
// GET /api/admin/users?q=xxx
func (h *ViewHandler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Admin(r.Context(), middleware.StateFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
