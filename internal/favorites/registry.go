package favorites

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/cookingstore/internal/metrics"
	"github.com/hitoshi/cookingstore/internal/session"
)

// Registry はセッションIDごとにStoreを保持する。
// Observeをsession.ManagerのSubscribeに登録して使う。
type Registry struct {
	api     API
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry はRegistryを生成する。
func NewRegistry(api API, mc metrics.MetricsCollector, logger *slog.Logger) *Registry {
	if mc == nil {
		mc = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		api:     api,
		metrics: mc,
		logger:  logger,
		stores:  make(map[string]*Store),
	}
}

// For はsidのStoreを返す。存在しなければ未取得の空のStoreを作る。
func (r *Registry) For(sid string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[sid]
	if !ok {
		s = newStore(r.api, r.metrics, r.logger)
		r.stores[sid] = s
	}
	return s
}

// Observe はセッションの状態遷移を受け取る。session.Observerとして登録する。
// Authenticatedになった場合は古いStoreを捨て、次のアクセスで取り直させる。
// Anonymousになった場合はStoreを空にする。
func (r *Registry) Observe(sid string, old, new session.State) {
	switch new.Status {
	case session.StatusAuthenticated:
		if old.Authenticated() && new.User != nil && old.User.SubjectID == new.User.SubjectID {
			return
		}
		r.drop(sid)
	case session.StatusAnonymous:
		r.drop(sid)
	}
}

// drop はStoreを登録から外して空にする。参照を持ち続けているビューにも空集合が見える。
func (r *Registry) drop(sid string) {
	r.mu.Lock()
	s := r.stores[sid]
	delete(r.stores, sid)
	r.mu.Unlock()
	if s != nil {
		s.Clear()
	}
}

// Prune はmaxIdle以上使われていないStoreを破棄し、破棄した数を返す。
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for sid, s := range r.stores {
		if s.idleSince().Before(cutoff) {
			delete(r.stores, sid)
			n++
		}
	}
	return n
}

// Len は保持しているStoreの数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
