// Package theme はライト/ダーク/システム連動のテーマ設定を管理する。
package theme

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/reviews/internal/storage"
)

// Theme はテーマ設定値。
type Theme string

const (
	Light  Theme = "light"
	Dark   Theme = "dark"
	System Theme = "system"
)

const (
	// StorageKey はKV上でテーマ設定を保存するキー。
	StorageKey = "selected-theme"
	// DarkClass はダークテーマ適用時にドキュメントへ付与するクラス。
	DarkClass = "ion-palette-dark"
	// SchemeAttribute は明示テーマ指定時に設定するドキュメント属性。
	SchemeAttribute = "prefers-color-scheme"
)

// Parse は文字列をThemeに変換する。
func Parse(s string) (Theme, error) {
	switch t := Theme(s); t {
	case Light, Dark, System:
		return t, nil
	default:
		return "", fmt.Errorf("invalid theme: %q (allowed: light, dark, system)", s)
	}
}

// Document はテーマを反映する対象のポート。
type Document interface {
	SetAttribute(name, value string)
	ToggleClass(name string, on bool)
}

// Controller はテーマ設定を永続化し、Documentに反映する。
type Controller struct {
	kv     storage.KV
	doc    Document
	logger *slog.Logger

	mu         sync.Mutex
	systemDark bool
}

// NewController はControllerを生成する。systemDarkは起動時点のシステム配色。
func NewController(kv storage.KV, doc Document, systemDark bool, logger *slog.Logger) *Controller {
	return &Controller{
		kv:         kv,
		doc:        doc,
		logger:     logger,
		systemDark: systemDark,
	}
}

// Initialize は保存済みのテーマを適用する。未保存または不正な値の場合はライトテーマを適用する。
func (c *Controller) Initialize(ctx context.Context) error {
	stored, ok, err := c.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("failed to read theme: %w", err)
	}

	t := Light
	if ok {
		if parsed, err := Parse(stored); err == nil {
			t = parsed
		} else {
			c.logger.Warn("ignoring invalid stored theme", slog.String("value", stored))
		}
	}
	return c.SetTheme(ctx, t)
}

// SetTheme はテーマを適用して保存する。
// systemの場合は現在のシステム配色に従う。light/darkの場合は配色属性も設定する。
func (c *Controller) SetTheme(ctx context.Context, t Theme) error {
	if _, err := Parse(string(t)); err != nil {
		return err
	}

	c.mu.Lock()
	if t == System {
		c.doc.ToggleClass(DarkClass, c.systemDark)
	} else {
		c.doc.SetAttribute(SchemeAttribute, string(t))
		c.doc.ToggleClass(DarkClass, t == Dark)
	}
	c.mu.Unlock()

	if err := c.kv.Set(ctx, StorageKey, string(t)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// GetTheme は保存済みのテーマを返す。未保存の場合はsystem。
func (c *Controller) GetTheme(ctx context.Context) (Theme, error) {
	stored, ok, err := c.kv.Get(ctx, StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to read theme: %w", err)
	}
	if !ok || stored == "" {
		return System, nil
	}
	return Theme(stored), nil
}

// SystemChanged はシステム配色の変更イベントを処理する。
// 保存済みテーマがsystemの場合のみ反映し、light/darkの明示指定中は無視する。
func (c *Controller) SystemChanged(ctx context.Context, isDark bool) error {
	c.mu.Lock()
	c.systemDark = isDark
	c.mu.Unlock()

	stored, _, err := c.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("failed to read theme: %w", err)
	}
	if Theme(stored) != System {
		return nil
	}

	c.mu.Lock()
	c.doc.ToggleClass(DarkClass, isDark)
	c.mu.Unlock()
	return nil
}
