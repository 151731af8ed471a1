package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/reviews/internal/config"
	"github.com/hitoshi/reviews/internal/credential"
	"github.com/hitoshi/reviews/internal/handler"
	"github.com/hitoshi/reviews/internal/logger"
	"github.com/hitoshi/reviews/internal/middleware"
	"github.com/hitoshi/reviews/internal/model"
	"github.com/joho/godotenv"
)

// ErrNotLoggedIn はクレデンシャル未保持のままCLIの認証必須コマンドを実行したことを表す。
var ErrNotLoggedIn = errors.New("not logged in: open /login in the browser first")

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、環境変数からConfigを読み込んでJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envは任意
	_ = godotenv.Load()

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 4. 設定されたレベルでログを再設定する
	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。コマンドの出力はout、ログはlogWに書き込む。
func Run(out, logW io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(logW)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("api_base", cfg.APIBase),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer c.close()

	switch cmd {
	case CommandWhoami:
		return runWhoami(ctx, out, c)
	case CommandLogs:
		return runLogs(ctx, out, c)
	case CommandLogout:
		return runLogout(ctx, out, c)
	default:
		return runServe(ctx, cfg, c)
	}
}

// newServer はルーターを構成したHTTPサーバーを返す。
func newServer(cfg *config.Config, c *components, limiter *middleware.RateLimiter) *http.Server {
	router := handler.NewRouter(&handler.RouterDeps{
		Credentials:       c.creds,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRF:              middleware.CSRFConfig{CookieSecure: cfg.CookieSecure},
		RateLimiter:       limiter,
		Logger:            slog.Default(),

		SessionController: c.session,
		LoginURL:          c.auth.LoginURL(),

		ResenaService:     c.resenas,
		MaxUploadBytes:    cfg.ImageMaxSize,
		SessionLogService: c.logs,

		ThemeController: c.theme,
		ThemeDocument:   c.document,

		HealthChecker: c.health,
		Gatherer:      c.registry,
	})

	return &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// runServe はルートサーフェスのHTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, c *components) error {
	// 永続化済みクレデンシャルがあれば起動時にユーザーを読み込む
	if c.creds.Present() {
		c.session.LoadUser(ctx)
	}

	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitWrite))
	defer limiter.Stop()

	server := newServer(cfg, c, limiter)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// whoamiOutput はwhoamiコマンドの出力。
type whoamiOutput struct {
	User  *model.User          `json:"user"`
	Token *credential.TokenInfo `json:"token,omitempty"`
}

// runWhoami は現在ユーザーを読み込んで表示する。
func runWhoami(ctx context.Context, out io.Writer, c *components) error {
	if !c.creds.Present() {
		return ErrNotLoggedIn
	}

	c.session.LoadUser(ctx)
	snap := c.session.Snapshot()
	if !snap.IsAuthenticated() {
		if !c.creds.Present() {
			return fmt.Errorf("credential was rejected: %w", ErrNotLoggedIn)
		}
		return fmt.Errorf("failed to load current user: %s", snap.Error)
	}

	result := whoamiOutput{User: snap.User}
	if token, ok := c.creds.Get(); ok {
		if info, err := credential.Inspect(token); err == nil {
			result.Token = &info
		}
	}
	return writeOutput(out, result)
}

// runLogs はセッション履歴を表示する。
func runLogs(ctx context.Context, out io.Writer, c *components) error {
	if !c.creds.Present() {
		return ErrNotLoggedIn
	}

	logs, err := c.logs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list session logs: %w", err)
	}
	return writeOutput(out, logs)
}

// runLogout はバックエンドへログアウトを通知し、クレデンシャルを破棄する。
// 通知に失敗してもローカルのログアウトは完了する。
func runLogout(ctx context.Context, out io.Writer, c *components) error {
	if !c.creds.Present() {
		fmt.Fprintln(out, "already logged out")
		return nil
	}

	c.session.Logout(ctx, nil)
	fmt.Fprintln(out, "logged out")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func writeOutput(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
