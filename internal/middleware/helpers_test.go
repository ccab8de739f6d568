package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func authenticatedState(sub string, groups ...string) session.State {
	return session.State{
		Status: session.StatusAuthenticated,
		User: &model.User{
			IDToken:     "id-" + sub,
			SubjectID:   sub,
			Email:       sub + "@example.com",
			DisplayName: sub,
			Groups:      groups,
		},
	}
}

func anonymousState() session.State {
	return session.State{Status: session.StatusAnonymous}
}

// requestWithSession はセッション情報を注入したリクエストを返す。
func requestWithSession(method, target, sid string, st session.State) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(ContextWithSession(req.Context(), sid, st))
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}
