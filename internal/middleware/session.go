package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/cookingstore/internal/session"
)

// DefaultSessionCookieName はセッションIDを保持するCookieの名前。
const DefaultSessionCookieName = "cs_session"

// sessionIDLength はsession.NewIDが生成するIDの長さ。
const sessionIDLength = 64

// SessionHydrator はセッション状態の解決に必要な操作。*session.Managerが満たす。
type SessionHydrator interface {
	Hydrate(ctx context.Context, sid string) (session.State, error)
	Await(ctx context.Context, sid string) (session.State, error)
}

// SessionCookieConfig はセッションCookieの設定。
type SessionCookieConfig struct {
	Name   string
	Secure bool
	Domain string
	MaxAge int
}

// NewSessionResolver はCookieからセッションIDを読み取り、状態をコンテキストへ注入するミドルウェアを返す。
// Cookieが無い、または形式が不正な場合は新しいIDを発行する。
// 復元中のセッションはawaitTimeoutまで待ち、それでも確定しなければHydratingのまま次へ渡す。
// リクエストを拒否することはない。
func NewSessionResolver(hydrator SessionHydrator, cookie SessionCookieConfig, awaitTimeout time.Duration) func(next http.Handler) http.Handler {
	if cookie.Name == "" {
		cookie.Name = DefaultSessionCookieName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := readSessionID(r, cookie.Name)
			if sid == "" {
				var err error
				sid, err = session.NewID()
				if err != nil {
					slog.Error("failed to generate session id", slog.String("error", err.Error()))
					WriteInternalServerError(w)
					return
				}
				SetSessionCookie(w, cookie, sid)
			}

			ctx, cancel := context.WithTimeout(r.Context(), awaitTimeout)
			st, err := hydrator.Hydrate(ctx, sid)
			if err == nil && st.Status == session.StatusHydrating {
				st, err = hydrator.Await(ctx, sid)
			}
			cancel()

			if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				slog.Warn("session hydration failed",
					slog.String("error", err.Error()),
				)
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sid, st)))
		})
	}
}

// readSessionID はCookieのセッションIDを返す。形式が不正な場合は空文字。
func readSessionID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil || len(c.Value) != sessionIDLength {
		return ""
	}
	for _, ch := range c.Value {
		if !(ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'f') {
			return ""
		}
	}
	return c.Value
}

// SetSessionCookie はセッションIDのCookieを書き込む。HttpOnlyでJavaScriptからは読めない。
func SetSessionCookie(w http.ResponseWriter, cookie SessionCookieConfig, sid string) {
	if cookie.Name == "" {
		cookie.Name = DefaultSessionCookieName
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    sid,
		Path:     "/",
		Domain:   cookie.Domain,
		MaxAge:   cookie.MaxAge,
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
