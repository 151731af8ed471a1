// Package session はログイン開始、OAuthコールバック、現在ユーザーの読み込み、ログアウトを調停する
// セッションコントローラーを提供する。
//
// 状態はAnonymous / Loading / Authenticated / Errorのいずれかで、保持するユーザー・ローディング・
// エラーメッセージから導出する。利用側はSnapshotで読み取るか、Subscribeで変更通知を受け取る。
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/reviews/internal/metrics"
	"github.com/hitoshi/reviews/internal/model"
)

// LoginPath はログアウト後の遷移先。
const LoginPath = "/login"

// State はセッションの状態。
type State string

const (
	StateAnonymous     State = "anonymous"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateError         State = "error"
)

// Snapshot はある時点のセッション状態のコピー。
type Snapshot struct {
	State   State       `json:"state"`
	User    *model.User `json:"user"`
	Loading bool        `json:"loading"`
	Error   string      `json:"error,omitempty"`
}

// IsAuthenticated はユーザーを保持している場合にtrueを返す。
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// Navigator は画面遷移のポート。
type Navigator interface {
	// Redirect はアプリケーション外のURLへ遷移する。
	Redirect(url string)
	// Navigate はアプリケーション内のパスへ遷移する。
	Navigate(path string)
}

// AuthService はコントローラーが使う認証操作。auth.Serviceが実装する。
type AuthService interface {
	LoginURL() string
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*model.User, error)
}

// Credentials はコントローラーが操作するクレデンシャル。credential.Storeが実装する。
type Credentials interface {
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Present() bool
}

// Options はControllerの任意設定。
type Options struct {
	Metrics metrics.MetricsCollector
	Logger  *slog.Logger
}

// Controller はセッションコントローラー。
//
// ミューテックスはスナップショットの一貫性のためだけに使う。LoadUserの同時呼び出しは
// 重複排除も順序付けもせず、最後に完了した呼び出しの結果が残る。
type Controller struct {
	auth    AuthService
	creds   Credentials
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	mu      sync.Mutex
	user    *model.User
	loading bool
	errMsg  string
	state   State
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewController はControllerを生成する。初期状態はAnonymous。
func NewController(auth AuthService, creds Credentials, opts Options) *Controller {
	c := &Controller{
		auth:    auth,
		creds:   creds,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		state:   StateAnonymous,
		subs:    make(map[int]func(Snapshot)),
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Snapshot は現在の状態のコピーを返す。
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IsAuthenticated はユーザーを保持しているかを返す。
func (c *Controller) IsAuthenticated() bool {
	return c.Snapshot().IsAuthenticated()
}

// Subscribe は状態変更のたびにfnを呼び出すよう登録し、登録解除関数を返す。
// fnはロック外で同期的に呼び出される。
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// LoginWithGoogle はバックエンドのGoogleログイン開始URLへ外部遷移する。
func (c *Controller) LoginWithGoogle(nav Navigator) {
	url := c.auth.LoginURL()
	c.logger.Info("redirecting to oauth login", slog.String("url", url))
	if nav != nil {
		nav.Redirect(url)
	}
}

// HandleOAuthCallback はコールバックで受け取ったトークンを保存し、現在ユーザーを読み込む。
func (c *Controller) HandleOAuthCallback(ctx context.Context, token string) {
	if err := c.creds.Set(ctx, token); err != nil {
		// メモリ上のトークンは有効なので読み込みは続行する
		c.logger.Warn("failed to persist credential",
			slog.String("error", err.Error()),
		)
	}
	c.LoadUser(ctx)
}

// LoadUser は現在ユーザーを読み込む。
// クレデンシャル未保持の場合はリクエストを発行せずセッションを空にする。
// 失敗時はセッションを空にしてエラーメッセージを記録する。エラーは返さない。
func (c *Controller) LoadUser(ctx context.Context) {
	if !c.creds.Present() {
		c.update(func() {
			c.user = nil
			c.errMsg = ""
		})
		return
	}

	c.update(func() {
		c.loading = true
		c.errMsg = ""
	})
	defer c.update(func() {
		c.loading = false
	})

	user, err := c.auth.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNoCredential) {
			c.update(func() {
				c.user = nil
				c.errMsg = ""
			})
			return
		}
		c.logger.Warn("failed to load current user",
			slog.String("error", err.Error()),
		)
		c.update(func() {
			c.user = nil
			c.errMsg = err.Error()
		})
		return
	}

	c.update(func() {
		c.user = user
		c.errMsg = ""
	})
}

// Logout はバックエンドへログアウトを通知し、クレデンシャルとセッションを破棄してログイン画面へ遷移する。
// 通知の失敗はログに記録するだけで、ローカルのログアウトは必ず完了する。
func (c *Controller) Logout(ctx context.Context, nav Navigator) {
	c.update(func() {
		c.loading = true
	})
	defer c.update(func() {
		c.loading = false
	})

	if err := c.auth.Logout(ctx); err != nil {
		c.logger.Warn("logout notification failed",
			slog.String("error", err.Error()),
		)
	}

	if err := c.creds.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear credential on logout",
			slog.String("error", err.Error()),
		)
	}
	c.update(func() {
		c.user = nil
		c.errMsg = ""
	})

	if nav != nil {
		nav.Navigate(LoginPath)
	}
}

// update はfnで状態を変更し、状態が変わっていればメトリクスに記録して購読者に通知する。
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	next := c.deriveStateLocked()
	changed := next != c.state
	c.state = next
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	if changed {
		c.metrics.RecordSessionTransition(string(next))
	}
	for _, s := range subs {
		s(snap)
	}
}

func (c *Controller) deriveStateLocked() State {
	switch {
	case c.loading:
		return StateLoading
	case c.user != nil:
		return StateAuthenticated
	case c.errMsg != "":
		return StateError
	default:
		return StateAnonymous
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:   c.state,
		Loading: c.loading,
		Error:   c.errMsg,
	}
	if c.user != nil {
		u := *c.user
		snap.User = &u
	}
	return snap
}
