package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/cookingstore/internal/model"
)

// ListRecipes はレシピ一覧の1ページを取得する。lastKeyはそのまま次のリクエストに渡す。
// 応答のlastKeyがnullまたは欠落している場合、RecipePage.LastKeyは空になる。
func (c *Client) ListRecipes(ctx context.Context, lastKey string) (*model.RecipePage, error) {
	const fallback = "Failed to fetch recipes"

	q := url.Values{}
	if lastKey != "" {
		q.Set("lastKey", lastKey)
	}
	if c.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(c.PageSize))
	}
	u := c.endpoints.Recipes + "/get-recipes"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	body, err := c.do(ctx, call{
		resource: "recipes",
		op:       "list_recipes",
		method:   http.MethodGet,
		url:      u,
		fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	page := &model.RecipePage{Items: []model.Recipe{}}

	// ページネーション無しの旧形式（配列のみ）も受け付ける
	if gjson.ParseBytes(body).IsArray() {
		if err := decode("list_recipes", body, &page.Items, fallback); err != nil {
			return nil, err
		}
		return page, nil
	}

	var raw struct {
		Items   []model.Recipe `json:"items"`
		LastKey *string        `json:"lastKey"`
	}
	if err := decode("list_recipes", body, &raw, fallback); err != nil {
		return nil, err
	}
	if raw.Items != nil {
		page.Items = raw.Items
	}
	if raw.LastKey != nil {
		page.LastKey = *raw.LastKey
	}
	return page, nil
}

// CreateRecipe はレシピを作成し、作成されたレシピを返す。
func (c *Client) CreateRecipe(ctx context.Context, token string, in model.NewRecipe) (*model.Recipe, error) {
	const fallback = "Failed to create recipe"

	body, err := c.do(ctx, call{
		resource: "recipes",
		op:       "create_recipe",
		method:   http.MethodPost,
		url:      c.endpoints.API + "/Recipes",
		token:    token,
		auth:     true,
		body:     in,
		fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	var created model.Recipe
	if err := decode("create_recipe", body, &created, fallback); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteRecipe はレシピを削除する。
func (c *Client) DeleteRecipe(ctx context.Context, token, recipeID string) error {
	_, err := c.do(ctx, call{
		resource: "recipes",
		op:       "delete_recipe",
		method:   http.MethodDelete,
		url:      c.endpoints.API + "/Recipes/" + url.PathEscape(recipeID),
		token:    token,
		auth:     true,
		fallback: "Failed to delete recipe",
	})
	return err
}

// ListMyRecipes は指定ユーザーが作成したレシピを取得する。
func (c *Client) ListMyRecipes(ctx context.Context, token, userID string) ([]model.Recipe, error) {
	const fallback = "Failed to fetch your recipes"

	body, err := c.do(ctx, call{
		resource: "recipes",
		op:       "list_my_recipes",
		method:   http.MethodGet,
		url:      c.endpoints.API + "/Recipes/user/" + url.PathEscape(userID),
		token:    token,
		auth:     true,
		fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	recipes := []model.Recipe{}
	if err := decode("list_my_recipes", body, &recipes, fallback); err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	return recipes, nil
}
