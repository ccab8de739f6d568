package view

import (
	"context"
	"errors"
	"sync"

	"github.com/hitoshi/cookingstore/internal/model"
)

var (
	// ErrPagerBusy は前のページの読み込み中に次のページが要求されたことを示す。
	ErrPagerBusy = errors.New("page load already in progress")
	// ErrNoMorePages は最終ページ以降が要求されたことを示す。
	ErrNoMorePages = errors.New("no more pages")
)

// maxWalkPages はAllでたどる最大ページ数。
const maxWalkPages = 100

// PageLoader はカーソルを受け取り1ページ分を返す。
type PageLoader func(ctx context.Context, lastKey string) (*model.RecipePage, error)

// Pager はlastKeyによるカーソルページネーションを扱う。
// バックエンドが返したlastKeyは加工せずに次のリクエストへ渡す。
type Pager struct {
	load PageLoader

	mu      sync.Mutex
	lastKey string
	hasMore bool
	loading bool
}

// NewPager は先頭ページから読み込むPagerを生成する。
func NewPager(load PageLoader) *Pager {
	return &Pager{load: load, hasMore: true}
}

// Resume はクライアントが持ち帰ったカーソルから再開する。空の場合は先頭から。
func (p *Pager) Resume(lastKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastKey = lastKey
	p.hasMore = true
}

// Next は次のページを読み込む。
// 読み込み中はErrPagerBusy、次ページが無い場合はErrNoMorePagesを返す。
// 失敗した場合、カーソルは進めない。
func (p *Pager) Next(ctx context.Context) ([]model.Recipe, error) {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil, ErrPagerBusy
	}
	if !p.hasMore {
		p.mu.Unlock()
		return nil, ErrNoMorePages
	}
	p.loading = true
	cursor := p.lastKey
	p.mu.Unlock()

	page, err := p.load(ctx, cursor)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if err != nil {
		return nil, err
	}
	p.lastKey = page.LastKey
	p.hasMore = page.LastKey != ""
	return page.Items, nil
}

// All は最終ページまでたどり、全件を返す。
// 同じカーソルが繰り返された場合はそこで打ち切る。
func (p *Pager) All(ctx context.Context) ([]model.Recipe, error) {
	var all []model.Recipe
	seen := make(map[string]bool)

	for i := 0; i < maxWalkPages && p.HasMore(); i++ {
		items, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		key := p.LastKey()
		if key != "" && seen[key] {
			break
		}
		seen[key] = true
	}
	return all, nil
}

// HasMore は次のページがあるかを返す。
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// LastKey は次のリクエストに渡すカーソルを返す。
func (p *Pager) LastKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastKey
}

// Loading は読み込み中かを返す。
func (p *Pager) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}
