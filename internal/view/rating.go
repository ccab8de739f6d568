package view

import (
	"context"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

// RatingView は評価送信後に表示する値。
type RatingView struct {
	RecipeID      string  `json:"recipeId"`
	AverageRating float64 `json:"averageRating"`
	MyRating      int     `json:"myRating"`
	Updated       bool    `json:"updated"`
}

// Rating はレシピの評価情報を返す。
func (s *Service) Rating(ctx context.Context, st session.State, recipeID string) (*model.Rating, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}
	if recipeID == "" {
		return nil, model.NewInvalidRequestError("recipe id is required")
	}
	return s.backend.GetRating(ctx, st.Token(), recipeID)
}

// SubmitRating は1〜5の評価を送信し、表示する平均値を返す。
// 応答から新しい平均値を得られない場合は、クライアントが表示中の平均値をそのまま返す。
func (s *Service) SubmitRating(ctx context.Context, st session.State, recipeID string, stars int, displayed float64) (*RatingView, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}
	if recipeID == "" {
		return nil, model.NewInvalidRequestError("recipe id is required")
	}
	if stars < 1 || stars > 5 {
		return nil, model.NewInvalidRequestError("Rating must be between 1 and 5")
	}

	res, err := s.backend.PutRating(ctx, st.Token(), recipeID, stars)
	if err != nil {
		return nil, err
	}

	view := &RatingView{
		RecipeID:      recipeID,
		AverageRating: displayed,
		MyRating:      stars,
		Updated:       res.Updated,
	}
	if res.Updated {
		view.AverageRating = res.NewAverage
	}
	return view, nil
}
