package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cookingstore/internal/middleware"
	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
	"github.com/hitoshi/cookingstore/internal/view"
)

// RecipeServiceInterface はレシピに対する操作を提供するサービス。*view.Serviceが満たす。
type RecipeServiceInterface interface {
	CreateRecipe(ctx context.Context, st session.State, in model.NewRecipe) (*view.RecipeCard, error)
	DeleteRecipe(ctx context.Context, st session.State, recipeID string) error
	ToggleFavorite(ctx context.Context, sid string, st session.State, recipeID string, favorite bool) ([]string, error)
	Reviews(ctx context.Context, st session.State, recipeID string) (*view.ReviewsPage, error)
	SubmitReview(ctx context.Context, st session.State, recipeID, text string) (*view.ReviewsPage, error)
	Rating(ctx context.Context, st session.State, recipeID string) (*model.Rating, error)
	SubmitRating(ctx context.Context, st session.State, recipeID string, stars int, displayed float64) (*view.RatingView, error)
	Chat(ctx context.Context, message string) (*view.ChatReply, error)
}

// RecipeHandler はレシピ・お気に入り・レビュー・評価・チャットのHTTPハンドラー。
type RecipeHandler struct {
	service RecipeServiceInterface
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeServiceInterface) *RecipeHandler {
	return &RecipeHandler{service: service}
}

type reviewRequest struct {
	Text string `json:"text"`
}

type ratingRequest struct {
	Rating           int     `json:"rating"`
	DisplayedAverage float64 `json:"displayedAverage"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type favoritesResponse struct {
	Favorites []string `json:"favorites"`
}

// CreateRecipe はレシピを投稿する。
// POST /api/recipes
func (h *RecipeHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var in model.NewRecipe
	if !decodeJSON(w, r, &in) {
		return
	}

	card, err := h.service.CreateRecipe(r.Context(), middleware.StateFromContext(r.Context()), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// DeleteRecipe はレシピを削除する。
// DELETE /api/recipes/{id}
func (h *RecipeHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRecipe(r.Context(), middleware.StateFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddFavorite はお気に入りに追加する。
// PUT /api/favorites/{id}
func (h *RecipeHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, true)
}

// RemoveFavorite はお気に入りから削除する。
// DELETE /api/favorites/{id}
func (h *RecipeHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, false)
}

func (h *RecipeHandler) toggleFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	ctx := r.Context()
	ids, err := h.service.ToggleFavorite(ctx, middleware.SessionIDFromContext(ctx), middleware.StateFromContext(ctx), chi.URLParam(r, "id"), favorite)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, favoritesResponse{Favorites: ids})
}

// ListReviews はレシピのレビュー一覧を返す。未ログインでも閲覧できる。
// GET /api/recipes/{id}/reviews
func (h *RecipeHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Reviews(r.Context(), middleware.StateFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SubmitReview はレビューを投稿または更新し、更新後の一覧を返す。
// POST /api/recipes/{id}/reviews
func (h *RecipeHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	page, err := h.service.SubmitReview(r.Context(), middleware.StateFromContext(r.Context()), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetRating はレシピの評価情報を返す。
// GET /api/recipes/{id}/rating
func (h *RecipeHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	rating, err := h.service.Rating(r.Context(), middleware.StateFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// PutRating は評価を送信する。
// PUT /api/recipes/{id}/rating
func (h *RecipeHandler) PutRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.SubmitRating(r.Context(), middleware.StateFromContext(r.Context()), chi.URLParam(r, "id"), req.Rating, req.DisplayedAverage)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Chat はチャットボットにメッセージを送る。
// バックエンドの失敗は200の返信として返る。
// POST /api/chat
func (h *RecipeHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, err := h.service.Chat(r.Context(), req.Message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
