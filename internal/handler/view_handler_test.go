package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
	"github.com/hitoshi/cookingstore/internal/view"
)

func TestViewHandler_Home_PassesQueryAndSession(t *testing.T) {
	var gotSID string
	var gotReq view.HomeRequest
	h := NewViewHandler(&mockViewService{homeFn: func(ctx context.Context, sid string, st session.State, req view.HomeRequest) (*view.HomePage, error) {
		gotSID, gotReq = sid, req
		return &view.HomePage{LastKey: "next", HasMore: true}, nil
	}})

	w := httptest.NewRecorder()
	h.Home(w, newRequest(http.MethodGet, "/api/views/home?lastKey=k1&category=3", "", anonymous()))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotSID != testSID || gotReq.LastKey != "k1" || gotReq.Category != "3" {
		t.Errorf("sid = %q, req = %+v", gotSID, gotReq)
	}
	var page view.HomePage
	decodeBody(t, w, &page)
	if page.LastKey != "next" || !page.HasMore {
		t.Errorf("page = %+v", page)
	}
}

func TestViewHandler_Home_BackendFailure(t *testing.T) {
	h := NewViewHandler(&mockViewService{homeFn: func(ctx context.Context, sid string, st session.State, req view.HomeRequest) (*view.HomePage, error) {
		return nil, &model.BackendError{Op: "list_recipes", Kind: model.KindTransport, Message: "failed to load recipes"}
	}})

	w := httptest.NewRecorder()
	h.Home(w, newRequest(http.MethodGet, "/api/views/home", "", anonymous()))
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestViewHandler_UserScopedViews(t *testing.T) {
	svc := &mockViewService{
		favoritesFn: func(ctx context.Context, sid string, st session.State) (*view.FavoritesPage, error) {
			if sid != testSID {
				t.Errorf("sid = %q", sid)
			}
			return &view.FavoritesPage{Recipes: []view.RecipeCard{{Recipe: model.Recipe{ID: "1"}, Favorite: true}}}, nil
		},
		myRecipesFn: func(ctx context.Context, st session.State) (*view.MyRecipesPage, error) {
			if !st.Authenticated() {
				return nil, model.ErrNotAuthenticated
			}
			return &view.MyRecipesPage{}, nil
		},
		profileFn: func(ctx context.Context, sid string, st session.State) (*view.ProfilePage, error) {
			return &view.ProfilePage{SubjectID: st.User.SubjectID, FavoritesCount: 2}, nil
		},
	}
	h := NewViewHandler(svc)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		st      session.State
		want    int
	}{
		{"お気に入り", h.Favorites, loggedIn("u1"), http.StatusOK},
		{"マイレシピ", h.MyRecipes, loggedIn("u1"), http.StatusOK},
		{"マイレシピ未ログイン", h.MyRecipes, anonymous(), http.StatusUnauthorized},
		{"プロフィール", h.Profile, loggedIn("u1"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, newRequest(http.MethodGet, "/", "", tt.st))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestViewHandler_AdminUsers_PassesQuery(t *testing.T) {
	var gotQuery string
	h := NewViewHandler(&mockViewService{adminFn: func(ctx context.Context, st session.State, query string) (*view.AdminPage, error) {
		gotQuery = query
		return &view.AdminPage{Query: query}, nil
	}})

	w := httptest.NewRecorder()
	h.AdminUsers(w, newRequest(http.MethodGet, "/api/admin/users?q=alice", "", loggedIn("a", "Admin")))
	if w.Code != http.StatusOK || gotQuery != "alice" {
		t.Errorf("status = %d, query = %q", w.Code, gotQuery)
	}
}
