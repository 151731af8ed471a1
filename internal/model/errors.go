package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized はバックエンドが認証を拒否したこと（401）を表す。
// RequestFailedErrorのStatusCodeが401の場合、errors.Isでこのエラーと一致する。
var ErrUnauthorized = errors.New("authentication rejected")

// ErrNoCredential はクレデンシャル未保持のまま認証必須操作を呼び出したことを表す。
var ErrNoCredential = errors.New("no credential")

// RequestFailedError は成功以外のHTTPステータスを表す。
// バックエンドのエラーボディは解析しない。
type RequestFailedError struct {
	Op         string // 操作名（例: resenas.get）
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s: request failed with status %d", e.Op, e.StatusCode)
}

// Is は401をErrUnauthorizedとして扱う。
func (e *RequestFailedError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// DecodeError はレスポンスボディのJSONデコード失敗を表す。
type DecodeError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode response: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError はネットワーク層の失敗（接続不可、キャンセル等）を表す。
type TransportError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError はクライアント側の入力検証エラーを表す。
type ValidationError struct {
	Field  string
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// APIError はルートサーフェスの統一エラーフォーマットを表す。
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
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeResenaNotFound  = "RESENA_NOT_FOUND"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeBackendFailed   = "BACKEND_FAILED"
	ErrCodeBackendDown     = "BACKEND_UNREACHABLE"
	ErrCodeInvalidResponse = "INVALID_RESPONSE"
	ErrCodeImageRejected   = "IMAGE_REJECTED"
)

// NewUnauthorizedError はセッション切れエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "セッションが無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidInputError は入力検証エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewResenaNotFoundError はレビュー未検出エラーを生成する。
func NewResenaNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeResenaNotFound,
		Message:  fmt.Sprintf("指定されたレビューが見つかりません: %s", id),
		Category: "backend",
		Action:   "レビューIDを確認してください。",
	}
}

// NewNotFoundError はレビュー以外のリソースがバックエンドに存在しない場合のエラーを生成する。
func NewNotFoundError(op string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("リソースが見つかりません: %s", op),
		Category: "backend",
		Action:   "API_URLの設定とバックエンドのバージョンを確認してください。",
	}
}

// NewBackendFailedError はバックエンドが失敗ステータスを返した場合のエラーを生成する。
func NewBackendFailedError(op string) *APIError {
	return &APIError{
		Code:     ErrCodeBackendFailed,
		Message:  fmt.Sprintf("バックエンドでの処理に失敗しました: %s", op),
		Category: "backend",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewBackendUnreachableError はバックエンドに接続できない場合のエラーを生成する。
func NewBackendUnreachableError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendDown,
		Message:  "バックエンドに接続できません。",
		Category: "system",
		Action:   "ネットワーク接続とAPI_URLの設定を確認してください。",
	}
}

// NewInvalidResponseError はレスポンスの解析に失敗した場合のエラーを生成する。
func NewInvalidResponseError(op string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResponse,
		Message:  fmt.Sprintf("バックエンドのレスポンスを解析できませんでした: %s", op),
		Category: "backend",
		Action:   "バックエンドのバージョンを確認してください。",
	}
}

// NewImageRejectedError は画像URLが拒否された場合のエラーを生成する。
func NewImageRejectedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImageRejected,
		Message:  fmt.Sprintf("画像を取得できませんでした: %s", reason),
		Category: "validation",
		Action:   "公開されているhttp/httpsの画像URLを指定してください。",
	}
}
