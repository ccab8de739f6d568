package view

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

// MyRecipesPage はマイレシピ画面のビューモデル。
type MyRecipesPage struct {
	Recipes    []RecipeCard     `json:"recipes"`
	Categories []model.Category `json:"categories"`
	Error      string           `json:"error,omitempty"`
}

// MyRecipes はログインユーザーが作成したレシピを返す。
// ユーザー別の一覧エンドポイントが使えない場合は、全ページをたどって作成者で絞り込む。
// カテゴリの取得失敗はErrorに載せ、レシピ一覧は返す。
func (s *Service) MyRecipes(ctx context.Context, st session.State) (*MyRecipesPage, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}
	subject := st.User.SubjectID

	recipes, err := s.backend.ListMyRecipes(ctx, st.Token(), subject)
	if err != nil {
		if !endpointUnavailable(err) {
			return nil, err
		}
		s.logger.Info("my recipes: falling back to full listing", slog.String("error", err.Error()))

		all, err := NewPager(s.backend.ListRecipes).All(ctx)
		if err != nil {
			return nil, err
		}
		recipes = make([]model.Recipe, 0, len(all))
		for _, r := range all {
			if r.CreatedByUserID == subject {
				recipes = append(recipes, r)
			}
		}
	}

	page := &MyRecipesPage{
		Recipes:    s.toCards(recipes, nil),
		Categories: []model.Category{},
	}

	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		page.Error = errorMessage(err, "Failed to load categories")
		s.logger.Warn("my recipes: categories unavailable", slog.String("error", err.Error()))
		return page, nil
	}
	if categories != nil {
		page.Categories = categories
	}
	return page, nil
}

// endpointUnavailable はユーザー別一覧エンドポイントが存在しない、
// または想定外の形式を返したことを示すエラーかを判定する。
func endpointUnavailable(err error) bool {
	var be *model.BackendError
	if !errors.As(err, &be) {
		return false
	}
	switch be.Kind {
	case model.KindParse:
		return true
	case model.KindStatus:
		return be.StatusCode == http.StatusNotFound ||
			be.StatusCode == http.StatusMethodNotAllowed ||
			be.StatusCode == http.StatusNotImplemented
	}
	return false
}

// CreateRecipe はレシピを作成する。作成者はセッションのユーザーで上書きする。
// Title、InstructionsTextは必須。画像URLが指定された場合は画像であることを確認する。
func (s *Service) CreateRecipe(ctx context.Context, st session.State, in model.NewRecipe) (*RecipeCard, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}

	in.Title = strings.TrimSpace(in.Title)
	in.InstructionsText = strings.TrimSpace(in.InstructionsText)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Title == "" {
		return nil, model.NewInvalidRequestError("Title is required")
	}
	if in.InstructionsText == "" {
		return nil, model.NewInvalidRequestError("InstructionsText is required")
	}

	in.CreatedByUserID = st.User.SubjectID
	if in.Publisher == "" {
		in.Publisher = st.User.DisplayName
		if in.Publisher == "" {
			in.Publisher = st.User.Email
		}
	}

	if in.ImageURL != "" && s.images != nil {
		if err := s.images.Check(ctx, in.ImageURL); err != nil {
			s.logger.Info("create recipe: image rejected",
				slog.String("image_url", in.ImageURL),
				slog.String("error", err.Error()),
			)
			return nil, model.NewInvalidImageURLError(err.Error())
		}
	}

	created, err := s.backend.CreateRecipe(ctx, st.Token(), in)
	if err != nil {
		return nil, err
	}
	cards := s.toCards([]model.Recipe{*created}, nil)
	return &cards[0], nil
}

// DeleteRecipe はレシピを削除する。
func (s *Service) DeleteRecipe(ctx context.Context, st session.State, recipeID string) error {
	if !st.Authenticated() {
		return model.ErrNotAuthenticated
	}
	if recipeID == "" {
		return model.NewInvalidRequestError("recipe id is required")
	}
	return s.backend.DeleteRecipe(ctx, st.Token(), recipeID)
}
