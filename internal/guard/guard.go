// Package guard はナビゲーション前に認証要否を判定するルートガードを提供する。
//
// 判定はクレデンシャルの有無だけで行い、ユーザー情報の取得などの非同期処理は行わない。
package guard

import "strings"

// 公開ルートのパス。
const (
	LoginPath    = "/login"
	CallbackPath = "/auth/callback"
	HomePath     = "/"
)

// Route はナビゲーション可能なルート。
type Route struct {
	Name         string
	Path         string // chi形式のパターン
	Title        string
	RequiresAuth bool
}

// Routes はアプリケーションのルート一覧。
var Routes = []Route{
	{Name: "Login", Path: LoginPath, Title: "Login - ReViews"},
	{Name: "Home", Path: HomePath, Title: "ReViews - Reseñas", RequiresAuth: true},
	{Name: "AuthCallback", Path: CallbackPath, Title: "Autenticando..."},
	{Name: "DetalleResena", Path: "/resena/{id}", Title: "Detalle de Reseña - ReViews", RequiresAuth: true},
	{Name: "CrearResena", Path: "/crear-resena", Title: "Crear Reseña - ReViews", RequiresAuth: true},
}

// Decision はガードの判定結果。Redirectが空の場合は遷移を許可する。
type Decision struct {
	Redirect string
}

// Allowed は遷移が許可されたかを返す。
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Decide は遷移先パスとクレデンシャルの有無から判定する。
//
//	クレデンシャルなし・非公開ルート → /login へリダイレクト
//	クレデンシャルなし・公開ルート   → 許可
//	クレデンシャルあり・/login       → / へリダイレクト
//	クレデンシャルあり・その他       → 許可
func Decide(path string, hasCredential bool) Decision {
	path = normalize(path)
	public := IsPublic(path)

	switch {
	case !hasCredential && !public:
		return Decision{Redirect: LoginPath}
	case hasCredential && path == LoginPath:
		return Decision{Redirect: HomePath}
	default:
		return Decision{}
	}
}

// IsPublic はクレデンシャルなしで遷移できるパスかを返す。
func IsPublic(path string) bool {
	path = normalize(path)
	return path == LoginPath || path == CallbackPath
}

func normalize(path string) string {
	if path == "" {
		return HomePath
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return HomePath
		}
	}
	return path
}
