// Package favorites はセッションごとに共有されるお気に入りレシピの集合を管理する。
//
// 各ビューは同じStoreを参照するため、あるビューでの追加・削除は
// 他のビューにもそのまま反映される。
package favorites

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/cookingstore/internal/metrics"
	"github.com/hitoshi/cookingstore/internal/model"
)

// API はお気に入りのバックエンド操作。
type API interface {
	ListFavorites(ctx context.Context, token string) ([]model.Recipe, error)
	AddFavorite(ctx context.Context, token, recipeID string) error
	RemoveFavorite(ctx context.Context, token, recipeID string) error
}

// Store は1セッション分のお気に入り集合。サーバー側の状態をミラーする。
type Store struct {
	api     API
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	mu       sync.Mutex
	ids      map[string]struct{}
	loaded   bool
	gen      uint64 // Clearのたびに進め、実行中のLoad結果を破棄する
	lastUsed time.Time
}

func newStore(api API, mc metrics.MetricsCollector, logger *slog.Logger) *Store {
	return &Store{
		api:      api,
		metrics:  mc,
		logger:   logger,
		ids:      make(map[string]struct{}),
		lastUsed: time.Now(),
	}
}

// Load はサーバーからお気に入り一覧を取得し、集合を作り直す。
// 取得中にClearされた場合、取得結果は集合に反映しない。
func (s *Store) Load(ctx context.Context, token string) ([]model.Recipe, error) {
	s.mu.Lock()
	gen := s.gen
	s.lastUsed = time.Now()
	s.mu.Unlock()

	recipes, err := s.api.ListFavorites(ctx, token)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(recipes))
	for _, r := range recipes {
		ids[r.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.ids = ids
		s.loaded = true
	}
	return recipes, nil
}

// EnsureLoaded は未取得の場合のみLoadを行う。
func (s *Store) EnsureLoaded(ctx context.Context, token string) error {
	if s.Loaded() {
		return nil
	}
	_, err := s.Load(ctx, token)
	return err
}

// Toggle はrecipeIDのお気に入り状態をfavoriteに変更する。
// 集合を先に更新してからAPIを呼び、失敗した場合は元の状態に戻してエラーを返す。
// 同じIDへの並行したToggleは直列化しない。
func (s *Store) Toggle(ctx context.Context, token, recipeID string, favorite bool) error {
	s.mu.Lock()
	_, was := s.ids[recipeID]
	s.set(recipeID, favorite)
	s.lastUsed = time.Now()
	s.mu.Unlock()

	var err error
	if favorite {
		err = s.api.AddFavorite(ctx, token, recipeID)
	} else {
		err = s.api.RemoveFavorite(ctx, token, recipeID)
	}
	if err == nil {
		return nil
	}

	s.mu.Lock()
	s.set(recipeID, was)
	s.mu.Unlock()

	s.metrics.RecordFavoriteRollback()
	s.logger.Warn("favorite toggle rolled back",
		slog.String("recipe_id", recipeID),
		slog.Bool("favorite", favorite),
		slog.String("error", err.Error()),
	)
	return err
}

func (s *Store) set(recipeID string, favorite bool) {
	if favorite {
		s.ids[recipeID] = struct{}{}
	} else {
		delete(s.ids, recipeID)
	}
}

// Has はrecipeIDがお気に入りに含まれるかを返す。
func (s *Store) Has(recipeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[recipeID]
	return ok
}

// IDs はお気に入りのレシピIDを昇順で返す。
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count はお気に入りの件数を返す。
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Loaded はサーバーから一度でも取得済みかを返す。
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Clear は集合を空にし、未取得状態に戻す。
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
	s.loaded = false
	s.gen++
}

func (s *Store) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
