package view

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hitoshi/cookingstore/internal/model"
)

func TestHome_Anonymous(t *testing.T) {
	backend := &mockBackend{
		listRecipesFn: func(ctx context.Context, lastKey string) (*model.RecipePage, error) {
			return &model.RecipePage{
				Items:   []model.Recipe{recipe("1", "10"), recipe("2", "10"), recipe("3", "")},
				LastKey: "k1",
			}, nil
		},
		listCategoriesFn: func(ctx context.Context) ([]model.Category, error) {
			return []model.Category{{ID: "10", Name: "Soup"}}, nil
		},
		listFavoritesFn: func(ctx context.Context, token string) ([]model.Recipe, error) {
			t.Error("favorites must not be fetched for anonymous sessions")
			return nil, nil
		},
	}
	svc := newTestService(t, backend, nil)

	page, err := svc.Home(context.Background(), "sid", anonymous(), HomeRequest{})
	if err != nil {
		t.Fatalf("Home returned error: %v", err)
	}
	if len(page.Recipes) != 3 || len(page.Categories) != 1 {
		t.Errorf("recipes=%d categories=%d", len(page.Recipes), len(page.Categories))
	}
	if want := map[string]int{"10": 2, "all": 1}; !reflect.DeepEqual(page.CategoryCounts, want) {
		t.Errorf("CategoryCounts = %v, want %v", page.CategoryCounts, want)
	}
	if !page.HasMore || page.LastKey != "k1" {
		t.Errorf("HasMore=%v LastKey=%q", page.HasMore, page.LastKey)
	}
	if len(page.Favorites) != 0 {
		t.Errorf("Favorites = %v, want empty", page.Favorites)
	}
}

func TestHome_CategorySelectedDisablesLoadMore(t *testing.T) {
	backend := &mockBackend{
		listRecipesFn: func(ctx context.Context, lastKey string) (*model.RecipePage, error) {
			return &model.RecipePage{
				Items:   []model.Recipe{recipe("1", "10"), recipe("2", "20")},
				LastKey: "k1",
			}, nil
		},
	}
	svc := newTestService(t, backend, nil)

	page, err := svc.Home(context.Background(), "sid", anonymous(), HomeRequest{Category: "20"})
	if err != nil {
		t.Fatalf("Home returned error: %v", err)
	}
	if len(page.Recipes) != 1 || page.Recipes[0].ID != "2" {
		t.Errorf("filtered recipes = %+v", page.Recipes)
	}
	if page.HasMore {
		t.Error("load more should be disabled while a category is selected")
	}
	if page.CategoryCounts["10"] != 1 {
		t.Error("counts should cover the whole page, not just the filtered recipes")
	}
}

func TestHome_CategoryErrorSurfaced(t *testing.T) {
	backend := &mockBackend{
		listCategoriesFn: func(ctx context.Context) ([]model.Category, error) {
			return nil, &model.BackendError{Op: "list_categories", Kind: model.KindTransport, Message: "Failed to fetch categories"}
		},
	}
	svc := newTestService(t, backend, nil)

	page, err := svc.Home(context.Background(), "sid", anonymous(), HomeRequest{})
	if err != nil {
		t.Fatalf("category failure must not fail the page: %v", err)
	}
	if page.Error != "Failed to fetch categories" {
		t.Errorf("Error = %q", page.Error)
	}
	if page.Categories == nil {
		t.Error("Categories should be an empty slice")
	}
}

func TestHome_RecipeErrorFailsPage(t *testing.T) {
	wantErr := &model.BackendError{Op: "list_recipes", Kind: model.KindStatus, StatusCode: 500, Message: "Failed to fetch recipes"}
	backend := &mockBackend{
		listRecipesFn: func(ctx context.Context, lastKey string) (*model.RecipePage, error) {
			return nil, wantErr
		},
	}
	svc := newTestService(t, backend, nil)

	_, err := svc.Home(context.Background(), "sid", anonymous(), HomeRequest{})
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestHome_AuthenticatedMarksFavorites(t *testing.T) {
	var gotToken string
	backend := &mockBackend{
		listRecipesFn: func(ctx context.Context, lastKey string) (*model.RecipePage, error) {
			return &model.RecipePage{Items: []model.Recipe{recipe("1", ""), recipe("2", "")}}, nil
		},
		listFavoritesFn: func(ctx context.Context, token string) ([]model.Recipe, error) {
			gotToken = token
			return []model.Recipe{recipe("2", "")}, nil
		},
	}
	svc := newTestService(t, backend, nil)

	page, err := svc.Home(context.Background(), "sid", loggedIn("u1"), HomeRequest{LastKey: "k0"})
	if err != nil {
		t.Fatalf("Home returned error: %v", err)
	}
	if gotToken != "id-u1" {
		t.Errorf("token = %q, want id-u1", gotToken)
	}
	if page.Recipes[0].Favorite || !page.Recipes[1].Favorite {
		t.Errorf("favorite flags = %v/%v, want false/true", page.Recipes[0].Favorite, page.Recipes[1].Favorite)
	}
	if !reflect.DeepEqual(page.Favorites, []string{"2"}) {
		t.Errorf("Favorites = %v", page.Favorites)
	}
}

func TestHome_CardSummaryAndSanitizedInstructions(t *testing.T) {
	backend := &mockBackend{
		listRecipesFn: func(ctx context.Context, lastKey string) (*model.RecipePage, error) {
			return &model.RecipePage{Items: []model.Recipe{{
				ID:               "1",
				Summary:          "<b>Rich</b> &amp; creamy " + strings.Repeat("x", 300),
				InstructionsText: "<p>Stir</p><script>alert(1)</script>",
			}}}, nil
		},
	}
	svc := newTestService(t, backend, nil)

	page, err := svc.Home(context.Background(), "sid", anonymous(), HomeRequest{})
	if err != nil {
		t.Fatalf("Home returned error: %v", err)
	}
	card := page.Recipes[0]
	if !strings.HasPrefix(card.SummaryText, "Rich & creamy") || !strings.HasSuffix(card.SummaryText, "…") {
		t.Errorf("SummaryText = %q", card.SummaryText)
	}
	if strings.Contains(card.InstructionsText, "script") {
		t.Errorf("InstructionsText not sanitized: %q", card.InstructionsText)
	}
}
