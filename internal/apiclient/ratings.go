package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/cookingstore/internal/model"
)

// newAveragePattern は評価APIの応答文に含まれる "New average: 4.3" を取り出す。
var newAveragePattern = regexp.MustCompile(`New average:\s*(-?\d+(?:\.\d+)?)`)

type ratingRequest struct {
	Rating int `json:"Rating"`
}

func (c *Client) ratingURL(recipeID string) string {
	return c.endpoints.API + "/Recipes/" + url.PathEscape(recipeID) + "/Rating"
}

// GetRating はレシピの評価情報を取得する。
func (c *Client) GetRating(ctx context.Context, token, recipeID string) (*model.Rating, error) {
	const fallback = "Failed to load rating"

	body, err := c.do(ctx, call{
		resource: "ratings",
		op:       "get_rating",
		method:   http.MethodGet,
		url:      c.ratingURL(recipeID),
		token:    token,
		auth:     true,
		fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	rating := &model.Rating{RecipeID: recipeID}
	if err := decode("get_rating", body, rating, fallback); err != nil {
		return nil, err
	}
	if rating.RecipeID == "" {
		rating.RecipeID = recipeID
	}
	return rating, nil
}

// PutRating は評価（星の数）を送信し、応答から新しい平均値を取り出す。
func (c *Client) PutRating(ctx context.Context, token, recipeID string, stars int) (*model.RatingResult, error) {
	body, err := c.do(ctx, call{
		resource: "ratings",
		op:       "put_rating",
		method:   http.MethodPut,
		url:      c.ratingURL(recipeID),
		token:    token,
		auth:     true,
		body:     ratingRequest{Rating: stars},
		fallback: "Failed to submit rating",
	})
	if err != nil {
		return nil, err
	}

	result := ParseRatingResponse(body)
	return &result, nil
}

// ParseRatingResponse は評価APIの応答から新しい平均値を取り出す。
// 構造化フィールド newAverage / NewAverage を優先し、無ければ本文中の
// "New average: <数値>" を探す。どちらも無い場合はUpdated=falseを返す。
func ParseRatingResponse(body []byte) model.RatingResult {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"newAverage", "NewAverage"} {
			v := gjson.GetBytes(body, field)
			switch v.Type {
			case gjson.Number:
				return model.RatingResult{NewAverage: v.Float(), Updated: true}
			case gjson.String:
				if f, err := strconv.ParseFloat(v.String(), 64); err == nil {
					return model.RatingResult{NewAverage: f, Updated: true}
				}
			}
		}
	}

	if m := newAveragePattern.FindSubmatch(body); m != nil {
		if f, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			return model.RatingResult{NewAverage: f, Updated: true}
		}
	}

	return model.RatingResult{}
}
