package apiclient

import (
	"context"
	"net/http"

	"github.com/hitoshi/cookingstore/internal/model"
)

// ListCategories はカテゴリ一覧を取得する。
// 空ボディは空のリストとして扱い、パースエラーにしない。
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	const fallback = "Failed to fetch categories"

	body, err := c.do(ctx, call{
		resource: "categories",
		op:       "list_categories",
		method:   http.MethodGet,
		url:      c.endpoints.Categories + "/Category",
		fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	categories := []model.Category{}
	if err := decode("list_categories", body, &categories, fallback); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []model.Category{}
	}
	return categories, nil
}
