package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/reviews/internal/credential"
	"github.com/hitoshi/reviews/internal/guard"
	"github.com/hitoshi/reviews/internal/middleware"
	"github.com/hitoshi/reviews/internal/model"
	"github.com/hitoshi/reviews/internal/resena"
	"github.com/hitoshi/reviews/internal/session"
)

// SessionControllerInterface はセッション系ハンドラーが使うコントローラー操作。
// session.Controllerが実装する。
type SessionControllerInterface interface {
	Snapshot() session.Snapshot
	LoginWithGoogle(nav session.Navigator)
	HandleOAuthCallback(ctx context.Context, token string)
	LoadUser(ctx context.Context)
	Logout(ctx context.Context, nav session.Navigator)
}

// CredentialReader はクレデンシャルの参照。credential.Storeが実装する。
type CredentialReader interface {
	Get() (token string, ok bool)
	Present() bool
}

// ResenaListerInterface はホーム画面のレビュー一覧取得。
type ResenaListerInterface interface {
	List(ctx context.Context, page resena.Page) (*model.ResenaList, error)
}

// SessionHandler はログイン、コールバック、ホーム、ログアウト、セッション照会のハンドラー。
type SessionHandler struct {
	controller SessionControllerInterface
	creds      CredentialReader
	resenas    ResenaListerInterface
	loginURL   string
	logger     *slog.Logger
}

// NewSessionHandler はSessionHandlerを生成する。loginURLはバックエンドのGoogleログイン開始URL。
func NewSessionHandler(controller SessionControllerInterface, creds CredentialReader, resenas ResenaListerInterface, loginURL string, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		controller: controller,
		creds:      creds,
		resenas:    resenas,
		loginURL:   loginURL,
		logger:     logger,
	}
}

// loginResponse はログイン画面のレスポンス。
type loginResponse struct {
	Title    string `json:"title"`
	LoginURL string `json:"login_url"`
}

// tokenInfoResponse はトークンから読み取った表示用情報。
type tokenInfoResponse struct {
	Subject   string     `json:"subject,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

// sessionResponse はセッション照会のレスポンス。
type sessionResponse struct {
	session.Snapshot
	Authenticated bool               `json:"authenticated"`
	HasCredential bool               `json:"has_credential"`
	Token         *tokenInfoResponse `json:"token,omitempty"`
}

// homeResponse はホーム画面のレスポンス。
type homeResponse struct {
	Title   string            `json:"title"`
	Session session.Snapshot  `json:"session"`
	Resenas *model.ResenaList `json:"resenas"`
}

// Login はログイン画面を返す。provider=googleの場合はGoogleログインへ外部リダイレクトする。
// GET /login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	switch provider := r.URL.Query().Get("provider"); provider {
	case "":
		writeJSON(w, http.StatusOK, loginResponse{
			Title:    routeTitle("Login"),
			LoginURL: h.loginURL,
		})
	case "google":
		nav := &httpNavigator{}
		h.controller.LoginWithGoogle(nav)
		nav.respond(w, r, h.loginURL)
	default:
		middleware.WriteError(w, r, &model.ValidationError{Field: "provider", Reason: "unsupported provider"})
	}
}

// Callback はOAuthコールバックを処理する。
// トークンを保存して現在ユーザーを読み込み、成功すれば/、失敗すれば/loginへリダイレクトする。
// GET /auth/callback?token=...
func (h *SessionHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if oauthErr := q.Get("error"); oauthErr != "" {
		h.logger.Warn("oauth callback returned error",
			slog.String("error", oauthErr),
		)
		http.Redirect(w, r, guard.LoginPath, http.StatusFound)
		return
	}

	token := q.Get("token")
	if token == "" {
		h.logger.Warn("oauth callback without token")
		http.Redirect(w, r, guard.LoginPath, http.StatusFound)
		return
	}

	h.controller.HandleOAuthCallback(r.Context(), token)
	if !h.controller.Snapshot().IsAuthenticated() {
		http.Redirect(w, r, guard.LoginPath, http.StatusFound)
		return
	}
	http.Redirect(w, r, guard.HomePath, http.StatusFound)
}

// Home は現在のセッションとレビュー一覧の先頭ページを返す。
// セッション未読み込みの場合は先に現在ユーザーを読み込む。
// GET /
func (h *SessionHandler) Home(w http.ResponseWriter, r *http.Request) {
	if !h.controller.Snapshot().IsAuthenticated() {
		h.controller.LoadUser(r.Context())
	}

	snap := h.controller.Snapshot()
	if !snap.IsAuthenticated() && !h.creds.Present() {
		// 読み込み中に401でクレデンシャルが破棄された
		http.Redirect(w, r, guard.LoginPath, http.StatusFound)
		return
	}

	list, err := h.resenas.List(r.Context(), resena.Page{})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Title:   routeTitle("Home"),
		Session: snap,
		Resenas: list,
	})
}

// Logout はログアウトしてログイン画面へリダイレクトする。
// POST /logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	nav := &httpNavigator{}
	h.controller.Logout(r.Context(), nav)
	nav.respond(w, r, guard.LoginPath)
}

// Session は現在のセッション状態を返す。未認証でも200でAnonymousを返す。
// GET /api/session
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	snap := h.controller.Snapshot()
	resp := sessionResponse{
		Snapshot:      snap,
		Authenticated: snap.IsAuthenticated(),
		HasCredential: h.creds.Present(),
	}

	if token, ok := h.creds.Get(); ok {
		if info, err := credential.Inspect(token); err == nil {
			resp.Token = toTokenInfoResponse(info)
		} else {
			h.logger.Debug("credential is not inspectable", slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func toTokenInfoResponse(info credential.TokenInfo) *tokenInfoResponse {
	resp := &tokenInfoResponse{
		Subject: info.Subject,
		Expired: info.Expired(time.Now()),
	}
	if !info.IssuedAt.IsZero() {
		t := info.IssuedAt
		resp.IssuedAt = &t
	}
	if !info.ExpiresAt.IsZero() {
		t := info.ExpiresAt
		resp.ExpiresAt = &t
	}
	return resp
}
