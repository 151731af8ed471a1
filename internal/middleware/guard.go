// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/reviews/internal/guard"
)

// CredentialChecker はクレデンシャルの有無を返す。credential.Storeが実装する。
type CredentialChecker interface {
	Present() bool
}

// NewGuardMiddleware は遷移前にルートガードを評価するミドルウェアを返す。
// 判定がリダイレクトの場合は302で遷移先を返し、後続のハンドラーは呼び出さない。
func NewGuardMiddleware(creds CredentialChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := guard.Decide(r.URL.Path, creds.Present())
			if !d.Allowed() {
				slog.Debug("route guard redirect",
					slog.String("path", r.URL.Path),
					slog.String("redirect", d.Redirect),
				)
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
