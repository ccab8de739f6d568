package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cookingstore/internal/middleware"
	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
	"github.com/hitoshi/cookingstore/internal/view"
)

// --- モック定義 ---

// mockSessions はSessionManagerのモック実装。
type mockSessions struct {
	hydrateFn        func(ctx context.Context, sid string) (session.State, error)
	loginURLFn       func(state string) string
	handleRedirectFn func(ctx context.Context, sid, code string) (session.State, error)
	logoutFn         func(ctx context.Context, sid string) error
	awaitFn          func(ctx context.Context, sid string) (session.State, error)
	discarded        []string
}

func (m *mockSessions) Hydrate(ctx context.Context, sid string) (session.State, error) {
	if m.hydrateFn != nil {
		return m.hydrateFn(ctx, sid)
	}
	return session.State{Status: session.StatusAnonymous}, nil
}

func (m *mockSessions) Await(ctx context.Context, sid string) (session.State, error) {
	if m.awaitFn != nil {
		return m.awaitFn(ctx, sid)
	}
	return m.Hydrate(ctx, sid)
}

func (m *mockSessions) Discard(sid string) {
	m.discarded = append(m.discarded, sid)
}

func (m *mockSessions) LoginURL(state string) string {
	if m.loginURLFn != nil {
		return m.loginURLFn(state)
	}
	return "https://idp.example.com/login?state=" + state
}

func (m *mockSessions) HandleRedirect(ctx context.Context, sid, code string) (session.State, error) {
	if m.handleRedirectFn != nil {
		return m.handleRedirectFn(ctx, sid, code)
	}
	return session.State{Status: session.StatusAnonymous}, nil
}

func (m *mockSessions) Logout(ctx context.Context, sid string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sid)
	}
	return nil
}

// mockViewService はViewServiceInterfaceのモック実装。
type mockViewService struct {
	homeFn      func(ctx context.Context, sid string, st session.State, req view.HomeRequest) (*view.HomePage, error)
	favoritesFn func(ctx context.Context, sid string, st session.State) (*view.FavoritesPage, error)
	myRecipesFn func(ctx context.Context, st session.State) (*view.MyRecipesPage, error)
	profileFn   func(ctx context.Context, sid string, st session.State) (*view.ProfilePage, error)
	adminFn     func(ctx context.Context, st session.State, query string) (*view.AdminPage, error)
}

func (m *mockViewService) Home(ctx context.Context, sid string, st session.State, req view.HomeRequest) (*view.HomePage, error) {
	if m.homeFn != nil {
		return m.homeFn(ctx, sid, st, req)
	}
	return &view.HomePage{}, nil
}

func (m *mockViewService) Favorites(ctx context.Context, sid string, st session.State) (*view.FavoritesPage, error) {
	if m.favoritesFn != nil {
		return m.favoritesFn(ctx, sid, st)
	}
	return &view.FavoritesPage{}, nil
}

func (m *mockViewService) MyRecipes(ctx context.Context, st session.State) (*view.MyRecipesPage, error) {
	if m.myRecipesFn != nil {
		return m.myRecipesFn(ctx, st)
	}
	return &view.MyRecipesPage{}, nil
}

func (m *mockViewService) Profile(ctx context.Context, sid string, st session.State) (*view.ProfilePage, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, sid, st)
	}
	return &view.ProfilePage{}, nil
}

func (m *mockViewService) Admin(ctx context.Context, st session.State, query string) (*view.AdminPage, error) {
	if m.adminFn != nil {
		return m.adminFn(ctx, st, query)
	}
	return &view.AdminPage{}, nil
}

// mockRecipeService はRecipeServiceInterfaceのモック実装。
type mockRecipeService struct {
	createRecipeFn   func(ctx context.Context, st session.State, in model.NewRecipe) (*view.RecipeCard, error)
	deleteRecipeFn   func(ctx context.Context, st session.State, recipeID string) error
	toggleFavoriteFn func(ctx context.Context, sid string, st session.State, recipeID string, favorite bool) ([]string, error)
	reviewsFn        func(ctx context.Context, st session.State, recipeID string) (*view.ReviewsPage, error)
	submitReviewFn   func(ctx context.Context, st session.State, recipeID, text string) (*view.ReviewsPage, error)
	ratingFn         func(ctx context.Context, st session.State, recipeID string) (*model.Rating, error)
	submitRatingFn   func(ctx context.Context, st session.State, recipeID string, stars int, displayed float64) (*view.RatingView, error)
	chatFn           func(ctx context.Context, message string) (*view.ChatReply, error)
}

func (m *mockRecipeService) CreateRecipe(ctx context.Context, st session.State, in model.NewRecipe) (*view.RecipeCard, error) {
	if m.createRecipeFn != nil {
		return m.createRecipeFn(ctx, st, in)
	}
	return &view.RecipeCard{}, nil
}

func (m *mockRecipeService) DeleteRecipe(ctx context.Context, st session.State, recipeID string) error {
	if m.deleteRecipeFn != nil {
		return m.deleteRecipeFn(ctx, st, recipeID)
	}
	return nil
}

func (m *mockRecipeService) ToggleFavorite(ctx context.Context, sid string, st session.State, recipeID string, favorite bool) ([]string, error) {
	if m.toggleFavoriteFn != nil {
		return m.toggleFavoriteFn(ctx, sid, st, recipeID, favorite)
	}
	return nil, nil
}

func (m *mockRecipeService) Reviews(ctx context.Context, st session.State, recipeID string) (*view.ReviewsPage, error) {
	if m.reviewsFn != nil {
		return m.reviewsFn(ctx, st, recipeID)
	}
	return &view.ReviewsPage{}, nil
}

func (m *mockRecipeService) SubmitReview(ctx context.Context, st session.State, recipeID, text string) (*view.ReviewsPage, error) {
	if m.submitReviewFn != nil {
		return m.submitReviewFn(ctx, st, recipeID, text)
	}
	return &view.ReviewsPage{}, nil
}

func (m *mockRecipeService) Rating(ctx context.Context, st session.State, recipeID string) (*model.Rating, error) {
	if m.ratingFn != nil {
		return m.ratingFn(ctx, st, recipeID)
	}
	return &model.Rating{}, nil
}

func (m *mockRecipeService) SubmitRating(ctx context.Context, st session.State, recipeID string, stars int, displayed float64) (*view.RatingView, error) {
	if m.submitRatingFn != nil {
		return m.submitRatingFn(ctx, st, recipeID, stars, displayed)
	}
	return &view.RatingView{}, nil
}

func (m *mockRecipeService) Chat(ctx context.Context, message string) (*view.ChatReply, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, message)
	}
	return &view.ChatReply{}, nil
}

// --- テストヘルパー ---

const testSID = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func loggedIn(sub string, groups ...string) session.State {
	return session.State{
		Status: session.StatusAuthenticated,
		User: &model.User{
			IDToken:     "id-" + sub,
			SubjectID:   sub,
			Email:       sub + "@example.com",
			DisplayName: sub,
			Groups:      groups,
		},
	}
}

func anonymous() session.State {
	return session.State{Status: session.StatusAnonymous}
}

// newRequest はセッション情報を注入したリクエストを返す。
func newRequest(method, target, body string, st session.State) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.ContextWithSession(req.Context(), testSID, st))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseAPIErrorResponse はレスポンスボディからエラーレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
}
