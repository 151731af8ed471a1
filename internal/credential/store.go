// Package credential は認証トークン（Bearer）を1つだけ保持するクレデンシャルストアを提供する。
//
// トークンはメモリに保持して同期的に読み出せるようにし、書き込みはKVへライトスルーする。
// 有効期限はクライアント側で追跡しない（失効はリクエスト拒否でのみ判明する）。
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/reviews/internal/storage"
)

// TokenKey はKV上でトークンを保存するキー。
const TokenKey = "auth_token"

// Store はクレデンシャルストア。同時に有効なトークンは高々1つ。
type Store struct {
	kv     storage.KV
	logger *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewStore はStoreを生成する。永続化済みトークンの読み込みはLoadで行う。
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// Load はKVから永続化済みトークンを読み込む。起動時に1回呼び出す。
func (s *Store) Load(ctx context.Context) error {
	token, ok, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.token = token
	} else {
		s.token = ""
	}
	return nil
}

// Set はトークンを保存する。空文字列はClearと同じ扱い。
// KVへの書き込みに失敗した場合もメモリ上のトークンは更新される（プロセス内では有効）。
func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	return nil
}

// Get は現在のトークンを返す。未保持の場合 ok=false。
func (s *Store) Get() (token string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Present はトークンを保持しているかを返す。認証状態の唯一のシグナル。
func (s *Store) Present() bool {
	_, ok := s.Get()
	return ok
}

// Clear はトークンを破棄する。KVからの削除に失敗してもメモリ上は必ず破棄する。
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.kv.Remove(ctx, TokenKey); err != nil {
		s.logger.Warn("failed to remove persisted credential",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	return nil
}
