package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/cookingstore/internal/middleware"
	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

const oauthStateCookie = "oauth_state"

// SessionServiceInterface は認証ハンドラーが必要とするセッション操作。*session.Managerが満たす。
type SessionServiceInterface interface {
	LoginURL(state string) string
	HandleRedirect(ctx context.Context, sid, code string) (session.State, error)
	Await(ctx context.Context, sid string) (session.State, error)
	Logout(ctx context.Context, sid string) error
	Discard(sid string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string
	CookieSecure bool
	AdminGroup   string
	// SessionCookie はログイン成功時に発行し直すセッションCookieの設定。
	SessionCookie middleware.SessionCookieConfig
}

// AuthHandler はログインフローとセッション照会のHTTPハンドラー。
type AuthHandler struct {
	service SessionServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service SessionServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// sessionUser はセッション照会で返すユーザー情報。トークンは含めない。
type sessionUser struct {
	SubjectID       string   `json:"subjectId"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"displayName"`
	ProfileImageURL string   `json:"profileImageUrl,omitempty"`
	Groups          []string `json:"groups"`
}

type sessionResponse struct {
	Status   session.Status `json:"status"`
	User     *sessionUser   `json:"user,omitempty"`
	IsAdmin  bool           `json:"isAdmin"`
	LoginURL string         `json:"loginUrl"`
}

func (h *AuthHandler) toSessionResponse(st session.State) sessionResponse {
	resp := sessionResponse{Status: st.Status, LoginURL: LoginPath}
	if st.Authenticated() {
		groups := st.User.Groups
		if groups == nil {
			groups = []string{}
		}
		resp.User = &sessionUser{
			SubjectID:       st.User.SubjectID,
			Email:           st.User.Email,
			DisplayName:     st.User.DisplayName,
			ProfileImageURL: st.User.ProfileImageURL,
			Groups:          groups,
		}
		resp.IsAdmin = st.User.HasGroup(h.config.AdminGroup)
	}
	return resp
}

// Login はホスト型ログイン画面へのリダイレクトでログインフローを開始する。
// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.StateFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.LoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はIdPからのリダイレクトを処理する。
// トークンはログイン前とは別の新しいセッションIDに保存し、Cookieを差し替える。
// GET /auth/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	// ログイン後のCallback再読み込み。新しいCookieで既にログイン済みなのでそのまま戻す
	if middleware.StateFromContext(ctx).Authenticated() {
		http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
		return
	}

	if idpErr := q.Get("error"); idpErr != "" {
		slog.Warn("identity provider returned error",
			slog.String("error", idpErr),
			slog.String("description", q.Get("error_description")),
		)
		h.redirectWithError(w, r, idpErr)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != q.Get("state") {
		slog.Warn("oauth state mismatch")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("invalid state parameter"))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	prevSID := middleware.SessionIDFromContext(ctx)
	sid, err := session.NewID()
	if err != nil {
		slog.Error("failed to generate session id", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	_, err = h.service.HandleRedirect(ctx, sid, q.Get("code"))
	switch {
	case errors.Is(err, session.ErrCodeAlreadyUsed):
		// 同じコードの同時リクエスト。先行側がこのブラウザのセッションを確定させていれば戻す
		if prevSID != "" {
			if cur, _ := h.service.Await(ctx, prevSID); cur.Authenticated() {
				http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
				return
			}
		}
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewCodeAlreadyUsedError())
		return
	case err != nil:
		h.service.Discard(sid)
		slog.Error("oauth callback failed",
			slog.String("request_id", middleware.RequestIDFromContext(ctx)),
			slog.String("error", err.Error()),
		)
		h.redirectWithError(w, r, "login_failed")
		return
	}

	middleware.SetSessionCookie(w, h.config.SessionCookie, sid)
	if prevSID != "" {
		h.service.Discard(prevSID)
	}
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はトークンを破棄して未ログイン状態に戻す。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if err := h.service.Logout(r.Context(), sid); err != nil {
		// トークン削除に失敗しても状態はAnonymousに遷移済み
		slog.Error("failed to logout", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, h.toSessionResponse(session.State{Status: session.StatusAnonymous}))
}

// Session は現在のセッション状態を返す。
// GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	st := middleware.StateFromContext(r.Context())
	w.Header().Set("Cache-Control", "no-store")
	if !st.Status.Resolved() {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusAccepted, h.toSessionResponse(st))
		return
	}
	writeJSON(w, http.StatusOK, h.toSessionResponse(st))
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	target := h.config.BaseURL + "/?auth_error=" + url.QueryEscape(reason)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
