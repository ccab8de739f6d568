package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/cookingstore/internal/model"
)

func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("title is required"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInvalidRequest || body.Message != "title is required" || body.Category != "validation" {
		t.Errorf("body = %+v", body)
	}
	if body.LoginURL != "" {
		t.Errorf("login_url should be omitted, got %q", body.LoginURL)
	}
}

func TestWriteErrorResponse_NotAuthenticatedCarriesLoginURL(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError("/auth/login"))

	body := decodeErrorBody(t, w)
	if body.LoginURL != "/auth/login" {
		t.Errorf("login_url = %q, want /auth/login", body.LoginURL)
	}
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInternal || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}
}
