// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"

	"github.com/hitoshi/cookingstore/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	sessionIDContextKey    = contextKey("session_id")
	sessionStateContextKey = contextKey("session_state")
	requestInfoContextKey  = contextKey("request_info")
)

// requestInfo はロギングミドルウェアが内側のミドルウェアから情報を受け取るための入れ物。
type requestInfo struct {
	requestID     string
	sessionStatus session.Status
}

// SessionIDFromContext はセッションIDを返す。セッション解決前は空文字。
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDContextKey).(string)
	return sid
}

// StateFromContext はセッション状態を返す。セッション解決前はUninitialized。
func StateFromContext(ctx context.Context) session.State {
	st, ok := ctx.Value(sessionStateContextKey).(session.State)
	if !ok {
		return session.State{Status: session.StatusUninitialized}
	}
	return st
}

// ContextWithSession はセッションIDと状態をコンテキストに注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, sid string, st session.State) context.Context {
	ctx = context.WithValue(ctx, sessionIDContextKey, sid)
	ctx = context.WithValue(ctx, sessionStateContextKey, st)
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		info.sessionStatus = st.Status
	}
	return ctx
}

// RequestIDFromContext はリクエストIDを返す。
func RequestIDFromContext(ctx context.Context) string {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		return info.requestID
	}
	return ""
}
