// Package view はSPAの各画面が必要とするビューモデルを組み立てる。
//
// 各メソッドは1画面分のAPI呼び出しをまとめ、失敗時の扱い（画面全体のエラーか、
// 一部のみのエラー表示か）を決める回復境界となる。
package view

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/cookingstore/internal/favorites"
	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/security"
)

// RecipeAPI はレシピ関連のバックエンド操作。
type RecipeAPI interface {
	ListRecipes(ctx context.Context, lastKey string) (*model.RecipePage, error)
	CreateRecipe(ctx context.Context, token string, in model.NewRecipe) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, token, recipeID string) error
	ListMyRecipes(ctx context.Context, token, userID string) ([]model.Recipe, error)
}

// CategoryAPI はカテゴリ一覧の取得。
type CategoryAPI interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// ReviewAPI はレビューのバックエンド操作。
type ReviewAPI interface {
	ListReviews(ctx context.Context, token, recipeID string) ([]model.Review, error)
	CreateReview(ctx context.Context, token, recipeID, text string) error
	UpdateReview(ctx context.Context, token, recipeID, text string) error
}

// RatingAPI は評価のバックエンド操作。
type RatingAPI interface {
	GetRating(ctx context.Context, token, recipeID string) (*model.Rating, error)
	PutRating(ctx context.Context, token, recipeID string, stars int) (*model.RatingResult, error)
}

// UserAPI は管理者向けのユーザー一覧取得。
type UserAPI interface {
	ListUsers(ctx context.Context, token string) ([]model.AdminUser, error)
}

// ChatAPI はチャットボットへの問い合わせ。
type ChatAPI interface {
	Chat(ctx context.Context, message string) (string, error)
}

// Backend はビューが使う全てのバックエンド操作。*apiclient.Clientが満たす。
type Backend interface {
	RecipeAPI
	CategoryAPI
	ReviewAPI
	RatingAPI
	UserAPI
	ChatAPI
}

// ImageChecker はユーザー入力の画像URLを検証する。
type ImageChecker interface {
	Check(ctx context.Context, rawURL string) error
}

// Service は全画面のビューモデルを組み立てる。
type Service struct {
	backend   Backend
	favorites *favorites.Registry
	images    ImageChecker
	sanitizer *security.InstructionsSanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。imagesがnilの場合は画像URLを検証しない。
func NewService(backend Backend, favs *favorites.Registry, images ImageChecker, logger *slog.Logger) *Service {
	return &Service{
		backend:   backend,
		favorites: favs,
		images:    images,
		sanitizer: security.NewInstructionsSanitizer(),
		logger:    logger,
	}
}

// RecipeCard はカード表示用のレシピ。
// SummaryTextはHTMLを除いた要約、InstructionsTextはサニタイズ済みHTML。
type RecipeCard struct {
	model.Recipe
	SummaryText string `json:"summaryText"`
	Favorite    bool   `json:"favorite"`
}

// toCards はレシピをカードに変換する。isFavがnilの場合は全てFavorite=false。
func (s *Service) toCards(recipes []model.Recipe, isFav func(id string) bool) []RecipeCard {
	cards := make([]RecipeCard, 0, len(recipes))
	for _, r := range recipes {
		r.InstructionsText = s.sanitizer.Sanitize(r.InstructionsText)
		card := RecipeCard{
			Recipe:      r,
			SummaryText: security.Summarize(r.Summary, security.SummaryMaxRunes),
		}
		if isFav != nil {
			card.Favorite = isFav(r.ID)
		}
		cards = append(cards, card)
	}
	return cards
}

// errorMessage はビューに表示するエラーメッセージを返す。
// バックエンドエラーはその分類済みメッセージ、それ以外は汎用メッセージ。
func errorMessage(err error, fallback string) string {
	var be *model.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}
