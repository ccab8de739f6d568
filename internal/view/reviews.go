package view

import (
	"context"
	"strings"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

// ReviewItem はレビュー1件。Mineはログインユーザー自身のレビューかを示す。
type ReviewItem struct {
	model.Review
	Mine bool `json:"mine"`
}

// ReviewsPage はレビュー一覧のビューモデル。
type ReviewsPage struct {
	Reviews  []ReviewItem `json:"reviews"`
	MyReview *ReviewItem  `json:"myReview"`
}

// Reviews はレシピのレビュー一覧を返す。未ログインでも取得できる。
func (s *Service) Reviews(ctx context.Context, st session.State, recipeID string) (*ReviewsPage, error) {
	if recipeID == "" {
		return nil, model.NewInvalidRequestError("recipe id is required")
	}

	reviews, err := s.backend.ListReviews(ctx, st.Token(), recipeID)
	if err != nil {
		return nil, err
	}

	subject := ""
	if st.Authenticated() {
		subject = st.User.SubjectID
	}

	page := &ReviewsPage{Reviews: make([]ReviewItem, 0, len(reviews))}
	for _, r := range reviews {
		item := ReviewItem{Review: r, Mine: subject != "" && r.UserID == subject}
		page.Reviews = append(page.Reviews, item)
		if item.Mine && page.MyReview == nil {
			mine := item
			page.MyReview = &mine
		}
	}
	return page, nil
}

// SubmitReview はログインユーザーのレビューを保存する。
// まだレビューしていなければ新規作成、既にあれば更新する。保存後の一覧を返す。
func (s *Service) SubmitReview(ctx context.Context, st session.State, recipeID, text string) (*ReviewsPage, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.NewInvalidRequestError("ReviewText is required")
	}

	current, err := s.Reviews(ctx, st, recipeID)
	if err != nil {
		return nil, err
	}

	if current.MyReview == nil {
		err = s.backend.CreateReview(ctx, st.Token(), recipeID, text)
	} else {
		err = s.backend.UpdateReview(ctx, st.Token(), recipeID, text)
	}
	if err != nil {
		return nil, err
	}

	return s.Reviews(ctx, st, recipeID)
}
