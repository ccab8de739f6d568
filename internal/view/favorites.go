package view

import (
	"context"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

// FavoritesPage はお気に入り画面のビューモデル。
type FavoritesPage struct {
	Recipes []RecipeCard `json:"recipes"`
}

// Favorites はログインユーザーのお気に入りレシピ一覧を返す。
// 取得結果でセッションのお気に入り集合も作り直す。
func (s *Service) Favorites(ctx context.Context, sid string, st session.State) (*FavoritesPage, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}

	store := s.favorites.For(sid)
	recipes, err := store.Load(ctx, st.Token())
	if err != nil {
		return nil, err
	}
	return &FavoritesPage{Recipes: s.toCards(recipes, store.Has)}, nil
}

// ToggleFavorite はお気に入りの追加・削除を行い、変更後のお気に入りID一覧を返す。
// 集合の取得に失敗した場合は変更せずにエラーを返す。
// 変更に失敗した場合はセッションの集合を元に戻してエラーを返す。
func (s *Service) ToggleFavorite(ctx context.Context, sid string, st session.State, recipeID string, favorite bool) ([]string, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}
	if recipeID == "" {
		return nil, model.NewInvalidRequestError("recipe id is required")
	}

	// 未取得の集合に追加すると応答が変更分だけになるため、先にサーバーの状態を取り込む
	store := s.favorites.For(sid)
	if err := store.EnsureLoaded(ctx, st.Token()); err != nil {
		return nil, err
	}
	if err := store.Toggle(ctx, st.Token(), recipeID, favorite); err != nil {
		return nil, err
	}
	return store.IDs(), nil
}
