package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

// AdminDecision は管理者ガードの判定結果。
type AdminDecision int

const (
	// Checking はセッションがまだ確定していないことを示す。拒否はしない。
	Checking AdminDecision = iota
	Allowed
	DeniedUnauthenticated
	DeniedNotAdmin
)

func (d AdminDecision) String() string {
	switch d {
	case Checking:
		return "checking"
	case Allowed:
		return "allowed"
	case DeniedUnauthenticated:
		return "denied_unauthenticated"
	case DeniedNotAdmin:
		return "denied_not_admin"
	default:
		return "unknown"
	}
}

// DecideAdmin はセッション状態から管理画面へのアクセス可否を決める。
// 確定前はChecking、未ログインはDeniedUnauthenticated、
// 管理者グループに属さないユーザーはDeniedNotAdminとなる。
func DecideAdmin(st session.State, adminGroup string) AdminDecision {
	if !st.Status.Resolved() {
		return Checking
	}
	if !st.Authenticated() {
		return DeniedUnauthenticated
	}
	if !st.User.HasGroup(adminGroup) {
		return DeniedNotAdmin
	}
	return Allowed
}

// NewAdminGuard は管理者グループのユーザーのみを通すミドルウェアを返す。
// 管理者でないログインユーザーはトップページへリダイレクトする。
// 未ログインの場合はリダイレクトせず、ログインを促す401を返す。
func NewAdminGuard(adminGroup, loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch DecideAdmin(StateFromContext(r.Context()), adminGroup) {
			case Allowed:
				next.ServeHTTP(w, r)
			case Checking:
				writeHydrating(w)
			case DeniedUnauthenticated:
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError(loginPath))
			case DeniedNotAdmin:
				http.Redirect(w, r, "/", http.StatusSeeOther)
			}
		})
	}
}

// RequireUser はログイン済みのセッションのみを通すミドルウェアを返す。
// 未ログインの場合はリダイレクトせず、login_urlを含む401を返す。
func RequireUser(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := StateFromContext(r.Context())
			if !st.Status.Resolved() {
				writeHydrating(w)
				return
			}
			if !st.Authenticated() {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError(loginPath))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeHydrating はセッション復元中であることを202で返す。クライアントは1秒後に再試行する。
func writeHydrating(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": string(session.StatusHydrating)})
}
