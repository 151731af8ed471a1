package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/reviews/internal/logger"
	"github.com/hitoshi/reviews/internal/storage"
)

// --- モック定義 ---

type failingKV struct {
	storage.KV
	setErr    error
	removeErr error
	getErr    error
}

func (f *failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.KV.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.KV.Set(ctx, key, value)
}

func (f *failingKV) Remove(ctx context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.KV.Remove(ctx, key)
}

// --- テスト ---

func TestStore_EmptyByDefault(t *testing.T) {
	s := NewStore(storage.NewMemoryKV(), logger.Discard())

	if _, ok := s.Get(); ok {
		t.Error("new store should not hold a token")
	}
	if s.Present() {
		t.Error("Present() should be false")
	}
}

func TestStore_SetGetClear(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := NewStore(kv, logger.Discard())

	if err := s.Set(ctx, "tok-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	token, ok := s.Get()
	if !ok || token != "tok-1" {
		t.Fatalf("Get = (%q, %v), want (tok-1, true)", token, ok)
	}
	if v, _, _ := kv.Get(ctx, TokenKey); v != "tok-1" {
		t.Errorf("persisted token = %q, want tok-1", v)
	}

	// 2つ目のトークンは1つ目を置き換える
	if err := s.Set(ctx, "tok-2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if token, _ := s.Get(); token != "tok-2" {
		t.Errorf("Get = %q, want tok-2", token)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if s.Present() {
		t.Error("token should be absent after Clear")
	}
	if _, ok, _ := kv.Get(ctx, TokenKey); ok {
		t.Error("persisted token should be removed after Clear")
	}
}

func TestStore_SetEmptyClears(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryKV(), logger.Discard())
	_ = s.Set(ctx, "tok")

	if err := s.Set(ctx, ""); err != nil {
		t.Fatalf("Set(\"\") failed: %v", err)
	}
	if s.Present() {
		t.Error("Set(\"\") should clear the token")
	}
}

func TestStore_LoadRestoresPersistedToken(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	_ = kv.Set(ctx, TokenKey, "from-last-run")

	s := NewStore(kv, logger.Discard())
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	token, ok := s.Get()
	if !ok || token != "from-last-run" {
		t.Errorf("Get = (%q, %v), want (from-last-run, true)", token, ok)
	}
}

func TestStore_LoadError(t *testing.T) {
	kv := &failingKV{KV: storage.NewMemoryKV(), getErr: errors.New("disk gone")}
	s := NewStore(kv, logger.Discard())

	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error from Load")
	}
}

func TestStore_ClearAlwaysDropsInMemoryToken(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{KV: storage.NewMemoryKV()}
	s := NewStore(kv, logger.Discard())
	_ = s.Set(ctx, "tok")

	kv.removeErr = errors.New("read-only filesystem")
	if err := s.Clear(ctx); err == nil {
		t.Fatal("expected Clear to report the persistence error")
	}
	if s.Present() {
		t.Error("in-memory token must be cleared even when persistence fails")
	}
}

func TestStore_SetPersistFailureKeepsInMemoryToken(t *testing.T) {
	kv := &failingKV{KV: storage.NewMemoryKV(), setErr: errors.New("read-only filesystem")}
	s := NewStore(kv, logger.Discard())

	if err := s.Set(context.Background(), "tok"); err == nil {
		t.Fatal("expected Set to report the persistence error")
	}
	if token, ok := s.Get(); !ok || token != "tok" {
		t.Errorf("Get = (%q, %v), want (tok, true)", token, ok)
	}
}

func TestInspect_ReadsRegisteredClaims(t *testing.T) {
	iat := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := iat.Add(30 * time.Minute)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user@example.com",
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	info, err := Inspect(signed)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Subject != "user@example.com" {
		t.Errorf("Subject = %q, want user@example.com", info.Subject)
	}
	if !info.IssuedAt.Equal(iat) {
		t.Errorf("IssuedAt = %v, want %v", info.IssuedAt, iat)
	}
	if !info.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", info.ExpiresAt, exp)
	}
	if info.Expired(iat.Add(time.Minute)) {
		t.Error("token should not be expired one minute after issue")
	}
	if !info.Expired(exp.Add(time.Second)) {
		t.Error("token should be expired after exp")
	}
}

func TestInspect_OpaqueToken_ReturnsError(t *testing.T) {
	if _, err := Inspect("opaque-token"); err == nil {
		t.Fatal("expected error for non-JWT token")
	}
}
