package view

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

const noFavoritesYet = "No favorites yet"

// ProfilePage はプロフィール画面のビューモデル。
type ProfilePage struct {
	SubjectID       string   `json:"subjectId"`
	DisplayName     string   `json:"displayName"`
	Email           string   `json:"email,omitempty"`
	ProfileImageURL string   `json:"profileImageUrl,omitempty"`
	Groups          []string `json:"groups"`
	FavoritesCount  int      `json:"favoritesCount"`
	TopCuisines     []string `json:"topCuisines"`
}

// Profile はユーザーのクレームとお気に入りの件数、よく選ぶ料理ジャンル上位3件を返す。
// お気に入りの取得に失敗してもクレームは返す。
func (s *Service) Profile(ctx context.Context, sid string, st session.State) (*ProfilePage, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}
	u := st.User

	page := &ProfilePage{
		SubjectID:       u.SubjectID,
		DisplayName:     u.DisplayName,
		Email:           u.Email,
		ProfileImageURL: u.ProfileImageURL,
		Groups:          append([]string{}, u.Groups...),
		TopCuisines:     []string{noFavoritesYet},
	}

	store := s.favorites.For(sid)
	recipes, err := store.Load(ctx, st.Token())
	if err != nil {
		s.logger.Warn("profile: favorites unavailable", slog.String("error", err.Error()))
		return page, nil
	}
	page.FavoritesCount = len(recipes)
	if top := topCuisines(recipes, 3); len(top) > 0 {
		page.TopCuisines = top
	}
	return page, nil
}

// topCuisines は出現回数の多い順にn件の料理ジャンルを返す。同数の場合は名前順。
func topCuisines(recipes []model.Recipe, n int) []string {
	counts := make(map[string]int)
	for _, r := range recipes {
		if c := strings.TrimSpace(r.Cuisine); c != "" {
			counts[c]++
		}
	}

	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
