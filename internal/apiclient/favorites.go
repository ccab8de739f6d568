package apiclient

import (
	"context"
	"net/http"

	"github.com/hitoshi/cookingstore/internal/model"
)

type favoriteRequest struct {
	RecipeID string `json:"RecipeId"`
}

// ListFavorites はログインユーザーのお気に入りレシピを取得する。
func (c *Client) ListFavorites(ctx context.Context, token string) ([]model.Recipe, error) {
	const fallback = "Failed to fetch favorites"

	body, err := c.do(ctx, call{
		resource: "favorites",
		op:       "list_favorites",
		method:   http.MethodGet,
		url:      c.endpoints.API + "/Users/Favorites",
		token:    token,
		auth:     true,
		fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	recipes := []model.Recipe{}
	if err := decode("list_favorites", body, &recipes, fallback); err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	return recipes, nil
}

// AddFavorite はレシピをお気に入りに追加する。
func (c *Client) AddFavorite(ctx context.Context, token, recipeID string) error {
	_, err := c.do(ctx, call{
		resource: "favorites",
		op:       "add_favorite",
		method:   http.MethodPost,
		url:      c.endpoints.API + "/Users/Favorites",
		token:    token,
		auth:     true,
		body:     favoriteRequest{RecipeID: recipeID},
		fallback: "Failed to add favorite",
	})
	return err
}

// RemoveFavorite はレシピをお気に入りから削除する。
func (c *Client) RemoveFavorite(ctx context.Context, token, recipeID string) error {
	_, err := c.do(ctx, call{
		resource: "favorites",
		op:       "remove_favorite",
		method:   http.MethodDelete,
		url:      c.endpoints.API + "/Users/Favorites",
		token:    token,
		auth:     true,
		body:     favoriteRequest{RecipeID: recipeID},
		fallback: "Failed to remove favorite",
	})
	return err
}
