// Package sessionlog はセッションログ（/session-logs/）の取得を提供する。
package sessionlog

import (
	"context"

	"github.com/hitoshi/reviews/internal/apiclient"
	"github.com/hitoshi/reviews/internal/model"
)

// OpList は操作名。
const OpList = "session_logs.list"

// API はバックエンド呼び出しのインターフェース。
type API interface {
	Do(ctx context.Context, r apiclient.Request, out any) error
}

// Service はセッションログの取得を提供する。
type Service struct {
	api API
}

// NewService はServiceを生成する。
func NewService(api API) *Service {
	return &Service{api: api}
}

// List は全てのセッションログを取得する。0件の場合は空スライスを返す。
func (s *Service) List(ctx context.Context) ([]model.SessionLog, error) {
	logs := []model.SessionLog{}
	if err := s.api.Do(ctx, apiclient.Request{Op: OpList, Path: "/session-logs/"}, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
