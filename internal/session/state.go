// Package session はブラウザセッションごとの認証状態マシンを提供する。
//
// 状態は Uninitialized → Hydrating → {Authenticated, Anonymous} と遷移し、
// 以降は Authenticated ⇄ Anonymous を行き来する。
// トークンの実体はTokenStoreに保存され、Managerはその唯一の所有者となる。
package session

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/hitoshi/cookingstore/internal/model"
)

// Status はセッションの状態を表す。
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusHydrating     Status = "hydrating"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// Resolved は状態が確定済み（HydratingでもUninitializedでもない）かを返す。
func (s Status) Resolved() bool {
	return s == StatusAuthenticated || s == StatusAnonymous
}

// State はセッションの状態とログインユーザーの組。
// UserはStatusAuthenticatedのときのみ非nil。
type State struct {
	Status Status
	User   *model.User
}

func (s State) clone() State {
	return State{Status: s.Status, User: s.User.Clone()}
}

// Authenticated はログイン済みかを返す。
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Token はユーザースコープのAPI呼び出しに使うIDトークンを返す。未ログインの場合は空文字。
func (s State) Token() string {
	if !s.Authenticated() {
		return ""
	}
	return s.User.IDToken
}

// NewID は暗号的に安全なセッションIDを生成する。
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
