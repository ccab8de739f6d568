// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/cookingstore/internal/model"
)

// TokenRepository はブラウザセッションごとのトークン保存インターフェース。
// トークン自体の有効期限チェックは行わない。
type TokenRepository interface {
	// Get は指定セッションIDのトークンを取得する。保存されていない場合はnilを返す。
	Get(ctx context.Context, sid string) (*model.TokenSet, error)
	// Set はIDトークンとアクセストークンをまとめて保存する。既存の値は上書きされる。
	Set(ctx context.Context, sid string, tokens model.TokenSet) error
	// Clear は指定セッションIDのトークンを削除する。存在しない場合もエラーにしない。
	Clear(ctx context.Context, sid string) error
}

// CodeMarker は認可コードの使用済みマーカーを管理するインターフェース。
type CodeMarker interface {
	// MarkUsed は認可コードを使用済みとして記録する。
	// 初回はtrue、すでに記録済みの場合はfalseを返す。
	MarkUsed(ctx context.Context, code string) (bool, error)
}
