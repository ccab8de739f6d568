// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/cookingstore/internal/middleware"
	"github.com/hitoshi/cookingstore/internal/model"
)

// LoginPath はログインフローを開始するパス。401レスポンスのlogin_urlに入る。
const LoginPath = "/auth/login"

// maxRequestBody はJSONリクエストボディの上限。
const maxRequestBody = 64 << 10

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvにデコードする。失敗時はエラーレスポンスを書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		msg := "invalid request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		} else if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(msg))
		return false
	}
	return true
}

// handleServiceError はビューサービスから返されたエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, model.ErrNotAuthenticated) {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError(LoginPath))
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var backendErr *model.BackendError
	if errors.As(err, &backendErr) {
		status, body := mapBackendError(backendErr)
		slog.Warn("backend call failed",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("op", backendErr.Op),
			slog.String("kind", string(backendErr.Kind)),
			slog.Int("backend_status", backendErr.StatusCode),
			slog.String("error", backendErr.Error()),
		)
		middleware.WriteErrorResponse(w, status, body)
		return
	}

	if errors.Is(err, context.Canceled) {
		// クライアントが切断済み
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		middleware.WriteErrorResponse(w, http.StatusGatewayTimeout, &model.APIError{
			Code:     model.ErrCodeBackendFailed,
			Message:  "The request timed out.",
			Category: "backend",
			Action:   "Please try again.",
		})
		return
	}

	slog.Error("internal server error",
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidImageURL:
		return http.StatusBadRequest
	case model.ErrCodeNotAuthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeCSRFFailed:
		return http.StatusForbidden
	case model.ErrCodeCodeAlreadyUsed:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeBackendFailed, model.ErrCodeBackendParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// mapBackendError はバックエンドの失敗をクライアント向けのステータスとエラーに変換する。
// バックエンドが401を返した場合はトークン失効とみなし、再ログインを促す。
func mapBackendError(e *model.BackendError) (int, *model.APIError) {
	switch {
	case e.Kind == model.KindParse:
		return http.StatusBadGateway, &model.APIError{
			Code:     model.ErrCodeBackendParse,
			Message:  e.Message,
			Category: "backend",
			Action:   "Please try again later.",
		}
	case e.StatusCode == http.StatusUnauthorized:
		return http.StatusUnauthorized, model.NewNotAuthenticatedError(LoginPath)
	case e.StatusCode == http.StatusForbidden:
		return http.StatusForbidden, &model.APIError{
			Code:     model.ErrCodeForbidden,
			Message:  e.Message,
			Category: "auth",
			Action:   "You are not allowed to perform this action.",
		}
	case e.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeBackendFailed,
			Message:  e.Message,
			Category: "backend",
			Action:   "The item may have been removed. Reload and try again.",
		}
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeBackendFailed,
			Message:  e.Message,
			Category: "backend",
			Action:   "Check the request and try again.",
		}
	default:
		return http.StatusBadGateway, &model.APIError{
			Code:     model.ErrCodeBackendFailed,
			Message:  e.Message,
			Category: "backend",
			Action:   "Please try again later.",
		}
	}
}
