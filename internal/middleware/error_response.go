package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/hitoshi/reviews/internal/model"
	"github.com/hitoshi/reviews/internal/security"
)

// resenaOpPrefix はレビュー系エンドポイントの操作名の接頭辞。
const resenaOpPrefix = "resenas."

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// WriteError はバックエンド呼び出しや入力検証のエラーをHTTPステータスと統一フォーマットに変換して書き込む。
//
//	ValidationError           → 400 INVALID_INPUT
//	ImageRejectedError        → 422 IMAGE_REJECTED
//	ErrNoCredential / 401     → 401 UNAUTHORIZED
//	RequestFailedError 404    → 404 RESENA_NOT_FOUND（resenas.*）/ NOT_FOUND（その他）
//	RequestFailedError その他 → 502 BACKEND_FAILED
//	DecodeError               → 502 INVALID_RESPONSE
//	TransportError            → 503 BACKEND_UNREACHABLE
//	上記以外                  → 500 INTERNAL_ERROR
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *model.ValidationError
		ir *security.ImageRejectedError
		rf *model.RequestFailedError
		de *model.DecodeError
		te *model.TransportError
	)

	switch {
	case errors.As(err, &ve):
		WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError(ve.Error()))
	case errors.As(err, &ir):
		WriteErrorResponse(w, http.StatusUnprocessableEntity, model.NewImageRejectedError(ir.Reason))
	case errors.Is(err, model.ErrNoCredential), errors.Is(err, model.ErrUnauthorized):
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
	case errors.As(err, &rf) && rf.StatusCode == http.StatusNotFound:
		if strings.HasPrefix(rf.Op, resenaOpPrefix) {
			WriteErrorResponse(w, http.StatusNotFound, model.NewResenaNotFoundError(path.Base(r.URL.Path)))
			return
		}
		WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError(rf.Op))
	case errors.As(err, &rf):
		WriteErrorResponse(w, http.StatusBadGateway, model.NewBackendFailedError(rf.Op))
	case errors.As(err, &de):
		WriteErrorResponse(w, http.StatusBadGateway, model.NewInvalidResponseError(de.Op))
	case errors.As(err, &te):
		WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewBackendUnreachableError())
	default:
		slog.Error("unhandled error",
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteInternalServerError(w)
	}
}
