package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/cookingstore/internal/auth"
	"github.com/hitoshi/cookingstore/internal/metrics"
	"github.com/hitoshi/cookingstore/internal/model"
)

// ErrCodeAlreadyUsed は同じ認可コードが再度渡されたことを示す。
// この場合トークン交換のネットワーク呼び出しは行われない。
var ErrCodeAlreadyUsed = errors.New("authorization code already used")

// TokenStore はセッションIDごとのトークン保存先。
type TokenStore interface {
	Get(ctx context.Context, sid string) (*model.TokenSet, error)
	Set(ctx context.Context, sid string, tokens model.TokenSet) error
	Clear(ctx context.Context, sid string) error
}

// CodeMarker は認可コードの使用済みマーカー。
type CodeMarker interface {
	MarkUsed(ctx context.Context, code string) (bool, error)
}

// Provider はIdPの認可コードフロー。
type Provider interface {
	LoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*model.TokenSet, error)
}

// UserRegistrar はログイン直後にバックエンドへユーザーを登録する。
type UserRegistrar interface {
	RegisterUser(ctx context.Context, token string) error
}

// Observer は状態遷移の通知を受け取る。
// Manager内部のロック外で、遷移を起こしたゴルーチンから同期的に呼ばれる。
type Observer func(sid string, old, new State)

// Config はManagerの設定。
type Config struct {
	// RegisterTimeout はユーザー登録通知のタイムアウト。
	RegisterTimeout time.Duration
	// Now は現在時刻を返す。nilの場合はtime.Now。
	Now func() time.Time
}

type entry struct {
	state    State
	hydrated chan struct{} // Hydrating中のみ非nil。状態確定時にcloseする
	epoch    uint64        // ログイン・ログアウトのたびに進める
	lastSeen time.Time
}

// Manager はブラウザセッションごとの認証状態を管理する。
type Manager struct {
	store     TokenStore
	marker    CodeMarker
	provider  Provider
	registrar UserRegistrar
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	config    Config

	group singleflight.Group
	bg    sync.WaitGroup

	mu        sync.Mutex
	entries   map[string]*entry
	observers map[int]Observer
	nextObsID int
}

// NewManager はManagerを生成する。
func NewManager(
	store TokenStore,
	marker CodeMarker,
	provider Provider,
	registrar UserRegistrar,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	config Config,
) *Manager {
	if config.RegisterTimeout <= 0 {
		config.RegisterTimeout = 10 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		marker:    marker,
		provider:  provider,
		registrar: registrar,
		metrics:   mc,
		logger:    logger,
		config:    config,
		entries:   make(map[string]*entry),
		observers: make(map[int]Observer),
	}
}

// State は指定セッションの現在の状態のコピーを返す。
func (m *Manager) State(sid string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sid]
	if !ok {
		return State{Status: StatusUninitialized}
	}
	e.lastSeen = m.config.Now()
	return e.state.clone()
}

// Subscribe は状態遷移のオブザーバーを登録し、登録解除関数を返す。
func (m *Manager) Subscribe(fn Observer) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Hydrate はトークンストアからセッションを復元する。
// 状態がUninitializedのときのみ読み込みを行い、確定済みなら現在の状態を返す。
// 同一セッションへの同時呼び出しは1回の読み込みを共有する。
// ctxが先に終了した場合、読み込みは継続したままその時点の状態とctx.Err()を返す。
func (m *Manager) Hydrate(ctx context.Context, sid string) (State, error) {
	if st := m.State(sid); st.Status != StatusUninitialized {
		return st, nil
	}

	ch := m.group.DoChan(sid, func() (interface{}, error) {
		epoch, started := m.beginHydrating(sid)
		if !started {
			return m.State(sid), nil
		}
		// 先行リクエストのキャンセルを共有しないよう切り離す
		return m.load(context.WithoutCancel(ctx), sid, epoch)
	})

	select {
	case res := <-ch:
		st, _ := res.Val.(State)
		return st.clone(), res.Err
	case <-ctx.Done():
		return m.State(sid), ctx.Err()
	}
}

// beginHydrating はUninitializedの場合のみHydratingへ遷移させる。
func (m *Manager) beginHydrating(sid string) (uint64, bool) {
	m.mu.Lock()
	e := m.entryLocked(sid)
	if e.state.Status != StatusUninitialized {
		m.mu.Unlock()
		return 0, false
	}
	epoch := e.epoch
	m.mu.Unlock()

	m.transition(sid, State{Status: StatusHydrating}, &epoch)
	return epoch, true
}

func (m *Manager) load(ctx context.Context, sid string, epoch uint64) (State, error) {
	anonymous := State{Status: StatusAnonymous}

	tokens, err := m.store.Get(ctx, sid)
	if err != nil {
		st := m.transition(sid, anonymous, &epoch)
		return st, fmt.Errorf("failed to load session tokens: %w", err)
	}
	if tokens == nil {
		return m.transition(sid, anonymous, &epoch), nil
	}

	user, err := auth.DecodeUser(*tokens, m.config.Now())
	if err != nil {
		m.logger.Warn("stored token could not be decoded, clearing session",
			slog.String("error", err.Error()),
		)
		if clearErr := m.store.Clear(ctx, sid); clearErr != nil {
			m.logger.Error("failed to clear undecodable session",
				slog.String("error", clearErr.Error()),
			)
		}
		return m.transition(sid, anonymous, &epoch), nil
	}

	return m.transition(sid, State{Status: StatusAuthenticated, User: user}, &epoch), nil
}

// Await はセッションがHydrating中であれば確定するまで待機する。
// ctxが先に終了した場合はその時点の状態とctx.Err()を返す。
func (m *Manager) Await(ctx context.Context, sid string) (State, error) {
	m.mu.Lock()
	var done chan struct{}
	if e, ok := m.entries[sid]; ok {
		done = e.hydrated
	}
	m.mu.Unlock()

	if done == nil {
		return m.State(sid), nil
	}

	select {
	case <-done:
		return m.State(sid), nil
	case <-ctx.Done():
		return m.State(sid), ctx.Err()
	}
}

// LoginURL はIdPのホスト型ログイン画面へのURLを返す。
func (m *Manager) LoginURL(state string) string {
	return m.provider.LoginURL(state)
}

// HandleRedirect はIdPからのリダイレクトで受け取った認可コードを処理する。
// コードが空の場合は何もしない。使用済みマーカーは交換開始前に記録するため、
// 同じコードで2回呼ばれてもトークン交換は1回しか行われない。
func (m *Manager) HandleRedirect(ctx context.Context, sid, code string) (State, error) {
	if code == "" {
		return m.State(sid), nil
	}

	first, err := m.marker.MarkUsed(ctx, code)
	if err != nil {
		return m.State(sid), fmt.Errorf("failed to record authorization code: %w", err)
	}
	if !first {
		m.metrics.RecordTokenExchange(metrics.ExchangeDuplicate)
		m.logger.Info("authorization code already used, ignoring")
		return m.State(sid), ErrCodeAlreadyUsed
	}

	epoch := m.bumpEpoch(sid)
	m.transition(sid, State{Status: StatusHydrating}, &epoch)

	user, err := m.exchange(ctx, sid, code)
	if err != nil {
		m.metrics.RecordTokenExchange(metrics.ExchangeFailure)
		if clearErr := m.store.Clear(ctx, sid); clearErr != nil {
			m.logger.Error("failed to clear session after exchange failure",
				slog.String("error", clearErr.Error()),
			)
		}
		return m.transition(sid, State{Status: StatusAnonymous}, &epoch), err
	}

	m.metrics.RecordTokenExchange(metrics.ExchangeSuccess)
	st := m.transition(sid, State{Status: StatusAuthenticated, User: user}, &epoch)
	m.registerAsync(user.IDToken, user.SubjectID)
	return st, nil
}

func (m *Manager) exchange(ctx context.Context, sid, code string) (*model.User, error) {
	tokens, err := m.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	user, err := auth.DecodeUser(*tokens, m.config.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to decode exchanged token: %w", err)
	}

	if err := m.store.Set(ctx, sid, *tokens); err != nil {
		return nil, fmt.Errorf("failed to persist tokens: %w", err)
	}

	return user, nil
}

// registerAsync はバックエンドへのユーザー登録をfire-and-forgetで行う。
// 失敗はログに残すのみでセッションには影響しない。
func (m *Manager) registerAsync(token, subject string) {
	if m.registrar == nil {
		return
	}

	m.bg.Add(1)
	go func() {
		defer m.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.config.RegisterTimeout)
		defer cancel()

		if err := m.registrar.RegisterUser(ctx, token); err != nil {
			m.logger.Warn("failed to register user with backend",
				slog.String("sub", subject),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Logout はトークンストアを消去し、同期的にAnonymousへ遷移する。
func (m *Manager) Logout(ctx context.Context, sid string) error {
	epoch := m.bumpEpoch(sid)
	err := m.store.Clear(ctx, sid)
	m.transition(sid, State{Status: StatusAnonymous}, &epoch)
	if err != nil {
		return fmt.Errorf("failed to clear session tokens: %w", err)
	}
	return nil
}

// Discard は指定セッションのエントリをメモリから取り除く。トークンストアは変更しない。
// ログイン時にセッションIDを発行し直した後、古いIDを無効にするために使う。
// 読み込み中の場合はエントリをAnonymousで残し、epochを進めて読み込み結果を捨てさせる。
func (m *Manager) Discard(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sid]
	if !ok {
		return
	}
	if e.hydrated == nil {
		delete(m.entries, sid)
		return
	}
	e.epoch++
	e.state = State{Status: StatusAnonymous}
	close(e.hydrated)
	e.hydrated = nil
}

// Close はバックグラウンドのユーザー登録が終わるまで待機する。
func (m *Manager) Close() {
	m.bg.Wait()
}

// Prune は最終参照からmaxIdle以上経過したエントリをメモリから取り除く。Hydrating中のものは残す。
// トークンストアの内容は変更しない。
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := m.config.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for sid, e := range m.entries {
		if e.state.Status != StatusHydrating && e.lastSeen.Before(cutoff) {
			delete(m.entries, sid)
			removed++
		}
	}
	return removed
}

func (m *Manager) entryLocked(sid string) *entry {
	e, ok := m.entries[sid]
	if !ok {
		e = &entry{state: State{Status: StatusUninitialized}}
		m.entries[sid] = e
	}
	e.lastSeen = m.config.Now()
	return e
}

func (m *Manager) bumpEpoch(sid string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(sid)
	e.epoch++
	return e.epoch
}

// transition は状態を更新しオブザーバーへ通知する。
// epochが指定され、かつ現在のエントリのepochと異なる場合は古い結果として破棄する。
func (m *Manager) transition(sid string, next State, epoch *uint64) State {
	m.mu.Lock()
	e := m.entryLocked(sid)
	if epoch != nil && e.epoch != *epoch {
		current := e.state.clone()
		m.mu.Unlock()
		return current
	}

	old := e.state
	e.state = next

	switch {
	case next.Status == StatusHydrating && e.hydrated == nil:
		e.hydrated = make(chan struct{})
	case next.Status != StatusHydrating && e.hydrated != nil:
		close(e.hydrated)
		e.hydrated = nil
	}

	observers := make([]Observer, 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	if old.Status != next.Status {
		m.metrics.RecordSessionTransition(string(old.Status), string(next.Status))
	}
	if old.Status != next.Status || old.User != next.User {
		for _, fn := range observers {
			fn(sid, old.clone(), next.clone())
		}
	}

	return next.clone()
}
