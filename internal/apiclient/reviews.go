package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/cookingstore/internal/model"
)

type reviewRequest struct {
	ReviewText string `json:"ReviewText"`
}

func (c *Client) reviewURL(recipeID string) string {
	return c.endpoints.API + "/Recipes/" + url.PathEscape(recipeID) + "/Review"
}

// ListReviews はレシピのレビュー一覧を取得する。トークンは任意。
func (c *Client) ListReviews(ctx context.Context, token, recipeID string) ([]model.Review, error) {
	const fallback = "Failed to load reviews"

	body, err := c.do(ctx, call{
		resource: "reviews",
		op:       "list_reviews",
		method:   http.MethodGet,
		url:      c.reviewURL(recipeID),
		token:    token,
		fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	reviews := []model.Review{}
	if err := decode("list_reviews", body, &reviews, fallback); err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return reviews, nil
}

// CreateReview はレビューを新規投稿する。
func (c *Client) CreateReview(ctx context.Context, token, recipeID, text string) error {
	_, err := c.do(ctx, call{
		resource: "reviews",
		op:       "create_review",
		method:   http.MethodPost,
		url:      c.reviewURL(recipeID),
		token:    token,
		auth:     true,
		body:     reviewRequest{ReviewText: text},
		fallback: "Create review failed",
	})
	return err
}

// UpdateReview はログインユーザー自身のレビューを更新する。
func (c *Client) UpdateReview(ctx context.Context, token, recipeID, text string) error {
	_, err := c.do(ctx, call{
		resource: "reviews",
		op:       "update_review",
		method:   http.MethodPut,
		url:      c.reviewURL(recipeID),
		token:    token,
		auth:     true,
		body:     reviewRequest{ReviewText: text},
		fallback: "Update review failed",
	})
	return err
}
