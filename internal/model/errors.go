package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, backend, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInvalidImageURL  = "INVALID_IMAGE_URL"
	ErrCodeBackendFailed    = "BACKEND_FAILED"
	ErrCodeBackendParse     = "BACKEND_PARSE_FAILED"
	ErrCodeCodeAlreadyUsed  = "CODE_ALREADY_USED"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeCSRFFailed       = "CSRF_FAILED"
)

// ErrNotAuthenticated はユーザースコープの操作がトークンなしで呼ばれたことを示す。
// ネットワーク呼び出しの前に同期的に返される。
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrorKind はバックエンド呼び出し失敗の分類を表す。
type ErrorKind string

const (
	// KindTransport はネットワーク到達不可などリクエスト自体の失敗を表す。
	KindTransport ErrorKind = "transport"
	// KindStatus は2xx以外のHTTPステータスを表す。
	KindStatus ErrorKind = "status"
	// KindParse は想定外のレスポンス形式を表す。
	KindParse ErrorKind = "parse"
)

// BackendError はAPIクライアントが返す分類済みエラー。
// Messageはレスポンスボディから抽出したメッセージ、または操作ごとの汎用メッセージ。
type BackendError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *BackendError) Error() string {
	return e.Message
}

// Unwrap は原因エラーを返す。
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewNotAuthenticatedError は未認証エラーを生成する。
func NewNotAuthenticatedError(loginURL string) *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "Please log in to continue.",
		Category: "auth",
		Action:   loginURL,
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Access denied: you don't have admin privileges.",
		Category: "auth",
		Action:   "This page is only accessible to administrators.",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "Check the request and try again.",
	}
}

// NewInvalidImageURLError は画像URLの検証失敗エラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("The image URL cannot be used: %s", reason),
		Category: "validation",
		Action:   "Use a public https URL that points to an image.",
	}
}

// NewCodeAlreadyUsedError は認可コードの再利用エラーを生成する。
func NewCodeAlreadyUsedError() *APIError {
	return &APIError{
		Code:     ErrCodeCodeAlreadyUsed,
		Message:  "This sign-in link has already been used.",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewCSRFFailedError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "CSRF token validation failed.",
		Category: "auth",
		Action:   "Reload the page and try again.",
	}
}
