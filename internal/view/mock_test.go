package view

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/hitoshi/cookingstore/internal/favorites"
	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

// mockBackend はBackendの関数フィールドモック。未設定のメソッドは空の結果を返す。
type mockBackend struct {
	listRecipesFn    func(ctx context.Context, lastKey string) (*model.RecipePage, error)
	createRecipeFn   func(ctx context.Context, token string, in model.NewRecipe) (*model.Recipe, error)
	deleteRecipeFn   func(ctx context.Context, token, recipeID string) error
	listMyRecipesFn  func(ctx context.Context, token, userID string) ([]model.Recipe, error)
	listCategoriesFn func(ctx context.Context) ([]model.Category, error)
	listFavoritesFn  func(ctx context.Context, token string) ([]model.Recipe, error)
	addFavoriteFn    func(ctx context.Context, token, recipeID string) error
	removeFavoriteFn func(ctx context.Context, token, recipeID string) error
	listReviewsFn    func(ctx context.Context, token, recipeID string) ([]model.Review, error)
	createReviewFn   func(ctx context.Context, token, recipeID, text string) error
	updateReviewFn   func(ctx context.Context, token, recipeID, text string) error
	getRatingFn      func(ctx context.Context, token, recipeID string) (*model.Rating, error)
	putRatingFn      func(ctx context.Context, token, recipeID string, stars int) (*model.RatingResult, error)
	listUsersFn      func(ctx context.Context, token string) ([]model.AdminUser, error)
	chatFn           func(ctx context.Context, message string) (string, error)
}

func (m *mockBackend) ListRecipes(ctx context.Context, lastKey string) (*model.RecipePage, error) {
	if m.listRecipesFn != nil {
		return m.listRecipesFn(ctx, lastKey)
	}
	return &model.RecipePage{Items: []model.Recipe{}}, nil
}

func (m *mockBackend) CreateRecipe(ctx context.Context, token string, in model.NewRecipe) (*model.Recipe, error) {
	if m.createRecipeFn != nil {
		return m.createRecipeFn(ctx, token, in)
	}
	return &model.Recipe{Title: in.Title}, nil
}

func (m *mockBackend) DeleteRecipe(ctx context.Context, token, recipeID string) error {
	if m.deleteRecipeFn != nil {
		return m.deleteRecipeFn(ctx, token, recipeID)
	}
	return nil
}

func (m *mockBackend) ListMyRecipes(ctx context.Context, token, userID string) ([]model.Recipe, error) {
	if m.listMyRecipesFn != nil {
		return m.listMyRecipesFn(ctx, token, userID)
	}
	return []model.Recipe{}, nil
}

func (m *mockBackend) ListCategories(ctx context.Context) ([]model.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return []model.Category{}, nil
}

func (m *mockBackend) ListFavorites(ctx context.Context, token string) ([]model.Recipe, error) {
	if m.listFavoritesFn != nil {
		return m.listFavoritesFn(ctx, token)
	}
	return []model.Recipe{}, nil
}

func (m *mockBackend) AddFavorite(ctx context.Context, token, recipeID string) error {
	if m.addFavoriteFn != nil {
		return m.addFavoriteFn(ctx, token, recipeID)
	}
	return nil
}

func (m *mockBackend) RemoveFavorite(ctx context.Context, token, recipeID string) error {
	if m.removeFavoriteFn != nil {
		return m.removeFavoriteFn(ctx, token, recipeID)
	}
	return nil
}

func (m *mockBackend) ListReviews(ctx context.Context, token, recipeID string) ([]model.Review, error) {
	if m.listReviewsFn != nil {
		return m.listReviewsFn(ctx, token, recipeID)
	}
	return []model.Review{}, nil
}

func (m *mockBackend) CreateReview(ctx context.Context, token, recipeID, text string) error {
	if m.createReviewFn != nil {
		return m.createReviewFn(ctx, token, recipeID, text)
	}
	return nil
}

func (m *mockBackend) UpdateReview(ctx context.Context, token, recipeID, text string) error {
	if m.updateReviewFn != nil {
		return m.updateReviewFn(ctx, token, recipeID, text)
	}
	return nil
}

func (m *mockBackend) GetRating(ctx context.Context, token, recipeID string) (*model.Rating, error) {
	if m.getRatingFn != nil {
		return m.getRatingFn(ctx, token, recipeID)
	}
	return &model.Rating{RecipeID: recipeID}, nil
}

func (m *mockBackend) PutRating(ctx context.Context, token, recipeID string, stars int) (*model.RatingResult, error) {
	if m.putRatingFn != nil {
		return m.putRatingFn(ctx, token, recipeID, stars)
	}
	return &model.RatingResult{}, nil
}

func (m *mockBackend) ListUsers(ctx context.Context, token string) ([]model.AdminUser, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, token)
	}
	return []model.AdminUser{}, nil
}

func (m *mockBackend) Chat(ctx context.Context, message string) (string, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, message)
	}
	return "", nil
}

// mockImages はImageCheckerの関数フィールドモック。
type mockImages struct {
	checkFn func(ctx context.Context, rawURL string) error
}

func (m *mockImages) Check(ctx context.Context, rawURL string) error {
	if m.checkFn != nil {
		return m.checkFn(ctx, rawURL)
	}
	return nil
}

func newTestService(t *testing.T, backend *mockBackend, images ImageChecker) *Service {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	favs := favorites.NewRegistry(backend, nil, logger)
	return NewService(backend, favs, images, logger)
}

func loggedIn(sub string) session.State {
	return session.State{
		Status: session.StatusAuthenticated,
		User: &model.User{
			IDToken:     "id-" + sub,
			SubjectID:   sub,
			Email:       sub + "@example.com",
			DisplayName: sub,
		},
	}
}

func anonymous() session.State {
	return session.State{Status: session.StatusAnonymous}
}

func recipe(id, category string) model.Recipe {
	return model.Recipe{ID: id, Title: "Recipe " + id, CategoryID: model.FlexString(category)}
}
