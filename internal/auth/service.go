// Package auth はReViewsバックエンドの認証系エンドポイント（/auth/*）を扱う。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/reviews/internal/apiclient"
	"github.com/hitoshi/reviews/internal/model"
)

// 操作名。エラーとメトリクスのラベルに使う。
const (
	OpLogout = "auth.logout"
	OpMe     = "auth.me"
)

// LoginPath はGoogleログイン開始のパス。取得はせずブラウザのリダイレクト先として使う。
const LoginPath = "/auth/login/google"

// API はバックエンド呼び出しのインターフェース。apiclient.Clientが実装する。
type API interface {
	Do(ctx context.Context, r apiclient.Request, out any) error
	URL(path string) string
}

// Credentials は認証サービスが参照・破棄するクレデンシャル。
type Credentials interface {
	Get() (token string, ok bool)
	Clear(ctx context.Context) error
}

// Service は認証に関するバックエンド操作を提供する。
type Service struct {
	api    API
	creds  Credentials
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(api API, creds Credentials, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		creds:  creds,
		logger: logger,
	}
}

// LoginURL はGoogleログイン開始URL（外部リダイレクト先）を返す。
func (s *Service) LoginURL() string {
	return s.api.URL(LoginPath)
}

// Logout はバックエンドにログアウトを通知する。
// クレデンシャルの破棄は行わない（呼び出し元の責務）。
func (s *Service) Logout(ctx context.Context) error {
	return s.api.Do(ctx, apiclient.Request{
		Op:     OpLogout,
		Method: http.MethodPost,
		Path:   "/auth/logout",
	}, nil)
}

// CurrentUser は現在のユーザーを取得する。
// クレデンシャル未保持の場合はリクエストを発行せずmodel.ErrNoCredentialを返す。
// 401の場合はクレデンシャルを破棄したうえで、model.ErrUnauthorizedと一致するエラーを返す。
func (s *Service) CurrentUser(ctx context.Context) (*model.User, error) {
	if _, ok := s.creds.Get(); !ok {
		return nil, model.ErrNoCredential
	}

	var user model.User
	err := s.api.Do(ctx, apiclient.Request{
		Op:   OpMe,
		Path: "/auth/me",
	}, &user)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			s.logger.Info("credential rejected by backend, clearing")
			if clearErr := s.creds.Clear(ctx); clearErr != nil {
				s.logger.Warn("failed to clear rejected credential",
					slog.String("error", clearErr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return &user, nil
}
