// Package storage はクレデンシャルやテーマ設定を永続化するキーバリューストアを提供する。
// ブラウザのlocalStorageに相当する役割を、差し替え可能なポートとして抽象化する。
package storage

import (
	"context"
	"sync"
)

// KV は文字列キーバリューストアのインターフェース。
// Getはキーが存在しない場合 ok=false を返す（エラーではない）。
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryKV はプロセス内メモリのみに保持するKV。テストと STORAGE_BACKEND=memory 用。
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV はMemoryKVを生成する。
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// Get はキーの値を返す。
func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set はキーに値を保存する。
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove はキーを削除する。存在しないキーの削除はエラーにならない。
func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// compile-time interface check
var (
	_ KV = (*MemoryKV)(nil)
	_ KV = (*FileKV)(nil)
	_ KV = (*RedisKV)(nil)
)
