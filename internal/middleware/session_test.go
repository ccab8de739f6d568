package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/cookingstore/internal/session"
)

type mockHydrator struct {
	hydrateFn func(ctx context.Context, sid string) (session.State, error)
	awaitFn   func(ctx context.Context, sid string) (session.State, error)
}

func (m *mockHydrator) Hydrate(ctx context.Context, sid string) (session.State, error) {
	return m.hydrateFn(ctx, sid)
}

func (m *mockHydrator) Await(ctx context.Context, sid string) (session.State, error) {
	if m.awaitFn == nil {
		return session.State{Status: session.StatusHydrating}, context.DeadlineExceeded
	}
	return m.awaitFn(ctx, sid)
}

var validSID = strings.Repeat("ab", 32)

func TestSessionResolver(t *testing.T) {
	cookie := SessionCookieConfig{Name: "cs_session", MaxAge: 3600}

	t.Run("既存Cookieのセッションを復元してコンテキストに入れる", func(t *testing.T) {
		var gotSID string
		h := &mockHydrator{hydrateFn: func(ctx context.Context, sid string) (session.State, error) {
			gotSID = sid
			return authenticatedState("u1"), nil
		}}

		var ctxSID string
		var ctxState session.State
		handler := NewSessionResolver(h, cookie, time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxSID = SessionIDFromContext(r.Context())
			ctxState = StateFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/views/home", nil)
		req.AddCookie(&http.Cookie{Name: "cs_session", Value: validSID})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if gotSID != validSID || ctxSID != validSID {
			t.Errorf("sid = %q / %q, want %q", gotSID, ctxSID, validSID)
		}
		if !ctxState.Authenticated() || ctxState.User.SubjectID != "u1" {
			t.Errorf("state = %+v, want authenticated u1", ctxState)
		}
		if len(w.Result().Cookies()) != 0 {
			t.Error("existing session should not get a new cookie")
		}
	})

	t.Run("Cookieが無い場合は新しいIDを発行する", func(t *testing.T) {
		h := &mockHydrator{hydrateFn: func(ctx context.Context, sid string) (session.State, error) {
			return anonymousState(), nil
		}}
		var ctxSID string
		handler := NewSessionResolver(h, cookie, time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxSID = SessionIDFromContext(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("expected 1 cookie, got %d", len(cookies))
		}
		c := cookies[0]
		if c.Name != "cs_session" || len(c.Value) != 64 {
			t.Errorf("cookie = %s=%q, want 64-char session id", c.Name, c.Value)
		}
		if !c.HttpOnly {
			t.Error("session cookie must be HttpOnly")
		}
		if c.MaxAge != 3600 {
			t.Errorf("MaxAge = %d, want 3600", c.MaxAge)
		}
		if ctxSID != c.Value {
			t.Errorf("context sid = %q, want cookie value %q", ctxSID, c.Value)
		}
	})

	t.Run("形式が不正なCookieは置き換える", func(t *testing.T) {
		h := &mockHydrator{hydrateFn: func(ctx context.Context, sid string) (session.State, error) {
			return anonymousState(), nil
		}}
		handler := NewSessionResolver(h, cookie, time.Second)(okHandler)

		for _, bad := range []string{"short", strings.Repeat("Z", 64), strings.Repeat("ab", 33)} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "cs_session", Value: bad})
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			cookies := w.Result().Cookies()
			if len(cookies) != 1 || cookies[0].Value == bad {
				t.Errorf("cookie %q was not replaced", bad)
			}
		}
	})

	t.Run("復元中ならAwaitで確定を待つ", func(t *testing.T) {
		var awaited int32
		h := &mockHydrator{
			hydrateFn: func(ctx context.Context, sid string) (session.State, error) {
				return session.State{Status: session.StatusHydrating}, nil
			},
			awaitFn: func(ctx context.Context, sid string) (session.State, error) {
				atomic.AddInt32(&awaited, 1)
				return anonymousState(), nil
			},
		}
		var st session.State
		handler := NewSessionResolver(h, cookie, time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st = StateFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "cs_session", Value: validSID})
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if atomic.LoadInt32(&awaited) != 1 {
			t.Error("Await should be called while hydrating")
		}
		if st.Status != session.StatusAnonymous {
			t.Errorf("status = %q, want anonymous", st.Status)
		}
	})

	t.Run("タイムアウトしてもリクエストは拒否しない", func(t *testing.T) {
		h := &mockHydrator{hydrateFn: func(ctx context.Context, sid string) (session.State, error) {
			<-ctx.Done()
			return session.State{Status: session.StatusHydrating}, ctx.Err()
		}}
		called := false
		var st session.State
		handler := NewSessionResolver(h, cookie, 10*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			st = StateFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "cs_session", Value: validSID})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if !called || w.Code != http.StatusOK {
			t.Fatalf("called = %v, status = %d", called, w.Code)
		}
		if st.Status != session.StatusHydrating {
			t.Errorf("status = %q, want hydrating", st.Status)
		}
	})

	t.Run("ストアのエラーでもリクエストは通す", func(t *testing.T) {
		h := &mockHydrator{hydrateFn: func(ctx context.Context, sid string) (session.State, error) {
			return anonymousState(), errors.New("db down")
		}}
		handler := NewSessionResolver(h, cookie, time.Second)(okHandler)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}

func TestStateFromContext_DefaultsToUninitialized(t *testing.T) {
	st := StateFromContext(context.Background())
	if st.Status != session.StatusUninitialized {
		t.Errorf("status = %q, want uninitialized", st.Status)
	}
	if SessionIDFromContext(context.Background()) != "" {
		t.Error("session id should be empty without resolver")
	}
}
