package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileKV は単一のJSONファイルに全キーを保存するKV。
// 書き込みは一時ファイル経由のrenameで行い、途中で中断されても既存内容を壊さない。
// 同一プロセス内の並行アクセスのみを想定する。
type FileKV struct {
	path string

	mu     sync.Mutex
	loaded bool
	values map[string]string
}

// NewFileKV はFileKVを生成する。ファイルは最初のアクセス時に読み込む。
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

// Path は保存先ファイルのパスを返す。
func (f *FileKV) Path() string {
	return f.path
}

// Get はキーの値を返す。
func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.loadLocked(); err != nil {
		return "", false, err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

// Set はキーに値を保存し、ファイルへ書き出す。
func (f *FileKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.loadLocked(); err != nil {
		return err
	}
	next := f.copyLocked()
	next[key] = value
	return f.commitLocked(next)
}

// Remove はキーを削除し、ファイルへ書き出す。
func (f *FileKV) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.loadLocked(); err != nil {
		return err
	}
	if _, ok := f.values[key]; !ok {
		return nil
	}
	next := f.copyLocked()
	delete(next, key)
	return f.commitLocked(next)
}

func (f *FileKV) copyLocked() map[string]string {
	next := make(map[string]string, len(f.values)+1)
	for k, v := range f.values {
		next[k] = v
	}
	return next
}

// commitLocked はvaluesをファイルへ書き出し、成功した場合のみメモリ上の内容を差し替える。
func (f *FileKV) commitLocked(values map[string]string) error {
	if err := f.flushLocked(values); err != nil {
		return err
	}
	f.values = values
	return nil
}

func (f *FileKV) loadLocked() error {
	if f.loaded {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.values = make(map[string]string)
		f.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read storage file: %w", err)
	}

	values := make(map[string]string)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("failed to parse storage file %s: %w", f.path, err)
		}
	}
	f.values = values
	f.loaded = true
	return nil
}

func (f *FileKV) flushLocked(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}
