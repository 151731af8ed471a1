package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/reviews/internal/metrics"
	"github.com/hitoshi/reviews/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Credentials       CredentialReader
	CORSAllowedOrigin string
	CSRF              middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// セッション
	SessionController SessionControllerInterface
	LoginURL          string

	// レビュー
	ResenaService  ResenaServiceInterface
	MaxUploadBytes int64

	// セッション履歴
	SessionLogService SessionLogServiceInterface

	// テーマ
	ThemeController ThemeControllerInterface
	ThemeDocument   DocumentStateReader

	// 運用
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer
}

// NewRouter は全ルートとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → CORS
//	  画面ルート: → Guard → CSRF (→ RateLimit(Write))
//	  /api/*:     → CSRF
//
// /health と /metrics はガードの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	sessionHandler := NewSessionHandler(deps.SessionController, deps.Credentials, deps.ResenaService, deps.LoginURL, logger)
	resenaHandler := NewResenaHandler(deps.ResenaService, deps.MaxUploadBytes)
	logHandler := NewSessionLogHandler(deps.SessionLogService)
	themeHandler := NewThemeHandler(deps.ThemeController, deps.ThemeDocument)

	// --- ガード対象外 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Get("/session", sessionHandler.Session)
		r.Handle("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		r.Route("/theme", func(r chi.Router) {
			r.Get("/", themeHandler.Get)
			r.Put("/", themeHandler.Set)
			r.Post("/system", themeHandler.SystemChanged)
		})
	})

	// --- 画面ルート ---
	// ミドルウェアスタック: Guard → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewGuardMiddleware(deps.Credentials))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		// 公開ルート
		r.Get("/login", sessionHandler.Login)
		r.Get("/auth/callback", sessionHandler.Callback)

		r.Get("/", sessionHandler.Home)
		r.Post("/logout", sessionHandler.Logout)

		r.Get("/resena/{id}", resenaHandler.Get)
		r.Get("/crear-resena", resenaHandler.CreateForm)
		r.Get("/mis-resenas", resenaHandler.Mine)

		r.Route("/buscar", func(r chi.Router) {
			r.Get("/establecimiento/{nombre}", resenaHandler.ByEstablishment)
			r.Get("/ubicacion", resenaHandler.ByLocation)
			r.Get("/valoracion", resenaHandler.ByRating)
		})

		r.Get("/session-logs", logHandler.List)

		// 書き込み系（バックエンドへの連続送信を制限）
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.WriteMiddleware())
			}
			r.Post("/crear-resena", resenaHandler.Create)
			r.Put("/resena/{id}", resenaHandler.Update)
			r.Delete("/resena/{id}", resenaHandler.Delete)
			r.Post("/upload-image", resenaHandler.UploadImage)
		})
	})

	return r
}
