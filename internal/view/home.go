package view

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

// uncategorized はCategoryIdを持たないレシピの集計キー。
const uncategorized = "all"

// HomeRequest はホーム画面の要求パラメータ。
type HomeRequest struct {
	LastKey  string
	Category string
}

// HomePage はホーム画面のビューモデル。
type HomePage struct {
	Recipes          []RecipeCard     `json:"recipes"`
	Categories       []model.Category `json:"categories"`
	CategoryCounts   map[string]int   `json:"categoryCounts"`
	Favorites        []string         `json:"favorites"`
	LastKey          string           `json:"lastKey"`
	HasMore          bool             `json:"hasMore"`
	SelectedCategory string           `json:"selectedCategory,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Home はレシピ1ページとカテゴリ一覧を取得してホーム画面を組み立てる。
// レシピの取得失敗はエラーとして返し、カテゴリの取得失敗はErrorに載せて画面は返す。
// カテゴリ選択中は現在のページをそのカテゴリで絞り込み、続きの読み込みは行わせない。
func (s *Service) Home(ctx context.Context, sid string, st session.State, req HomeRequest) (*HomePage, error) {
	pager := NewPager(s.backend.ListRecipes)
	pager.Resume(req.LastKey)

	var (
		recipes       []model.Recipe
		categories    []model.Category
		categoriesErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recipes, err = pager.Next(gctx)
		return err
	})
	g.Go(func() error {
		categories, categoriesErr = s.backend.ListCategories(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &HomePage{
		Categories:       categories,
		CategoryCounts:   countByCategory(recipes),
		Favorites:        []string{},
		LastKey:          pager.LastKey(),
		HasMore:          pager.HasMore(),
		SelectedCategory: req.Category,
	}
	if page.Categories == nil {
		page.Categories = []model.Category{}
	}
	if categoriesErr != nil {
		page.Error = errorMessage(categoriesErr, "Failed to load categories")
		s.logger.Warn("home: categories unavailable", slog.String("error", categoriesErr.Error()))
	}

	if req.Category != "" {
		recipes = filterByCategory(recipes, req.Category)
		page.HasMore = false
	}

	var isFav func(string) bool
	if st.Authenticated() {
		store := s.favorites.For(sid)
		if err := store.EnsureLoaded(ctx, st.Token()); err != nil {
			// お気に入りが取れなくても一覧は表示する
			s.logger.Warn("home: favorites unavailable", slog.String("error", err.Error()))
		}
		isFav = store.Has
		page.Favorites = store.IDs()
	}

	page.Recipes = s.toCards(recipes, isFav)
	return page, nil
}

func countByCategory(recipes []model.Recipe) map[string]int {
	counts := make(map[string]int)
	for _, r := range recipes {
		key := string(r.CategoryID)
		if key == "" {
			key = uncategorized
		}
		counts[key]++
	}
	return counts
}

func filterByCategory(recipes []model.Recipe, category string) []model.Recipe {
	out := make([]model.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if string(r.CategoryID) == category {
			out = append(out, r)
		}
	}
	return out
}
