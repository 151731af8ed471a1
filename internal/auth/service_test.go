package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/reviews/internal/apiclient"
	"github.com/hitoshi/reviews/internal/credential"
	"github.com/hitoshi/reviews/internal/model"
	"github.com/hitoshi/reviews/internal/storage"
)

// --- モック定義 ---

type mockAPI struct {
	doFn  func(ctx context.Context, r apiclient.Request, out any) error
	calls []apiclient.Request
}

func (m *mockAPI) Do(ctx context.Context, r apiclient.Request, out any) error {
	m.calls = append(m.calls, r)
	if m.doFn != nil {
		return m.doFn(ctx, r, out)
	}
	return nil
}

func (m *mockAPI) URL(path string) string {
	return "http://api.test" + path
}

// compile-time interface check
var (
	_ API         = (*mockAPI)(nil)
	_ API         = (*apiclient.Client)(nil)
	_ Credentials = (*credential.Store)(nil)
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newStoreWithToken(t *testing.T, token string) *credential.Store {
	t.Helper()
	store := credential.NewStore(storage.NewMemoryKV(), newTestLogger(&bytes.Buffer{}))
	if token != "" {
		if err := store.Set(context.Background(), token); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	return store
}

// --- LoginURL ---

func TestService_LoginURL(t *testing.T) {
	svc := NewService(&mockAPI{}, newStoreWithToken(t, ""), newTestLogger(&bytes.Buffer{}))

	if got := svc.LoginURL(); got != "http://api.test/auth/login/google" {
		t.Errorf("LoginURL = %q, want %q", got, "http://api.test/auth/login/google")
	}
}

// --- Logout ---

func TestService_Logout_PostsToBackend(t *testing.T) {
	api := &mockAPI{}
	svc := NewService(api, newStoreWithToken(t, "tok"), newTestLogger(&bytes.Buffer{}))

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(api.calls))
	}
	call := api.calls[0]
	if call.Method != http.MethodPost || call.Path != "/auth/logout" || call.Op != OpLogout {
		t.Errorf("unexpected request: %+v", call)
	}
}

func TestService_Logout_DoesNotClearCredential(t *testing.T) {
	api := &mockAPI{doFn: func(context.Context, apiclient.Request, any) error {
		return &model.RequestFailedError{Op: OpLogout, StatusCode: 500}
	}}
	store := newStoreWithToken(t, "tok")
	svc := NewService(api, store, newTestLogger(&bytes.Buffer{}))

	if err := svc.Logout(context.Background()); err == nil {
		t.Fatal("expected error from failed logout notification")
	}
	if !store.Present() {
		t.Error("Logout must leave credential handling to the caller")
	}
}

// --- CurrentUser ---

func TestService_CurrentUser_NoCredential_IssuesNoRequest(t *testing.T) {
	api := &mockAPI{}
	svc := NewService(api, newStoreWithToken(t, ""), newTestLogger(&bytes.Buffer{}))

	user, err := svc.CurrentUser(context.Background())
	if !errors.Is(err, model.ErrNoCredential) {
		t.Errorf("error = %v, want ErrNoCredential", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
	if len(api.calls) != 0 {
		t.Errorf("expected no requests, got %d", len(api.calls))
	}
}

func TestService_CurrentUser_Success(t *testing.T) {
	api := &mockAPI{doFn: func(_ context.Context, r apiclient.Request, out any) error {
		if r.Path != "/auth/me" || r.Op != OpMe {
			t.Errorf("unexpected request: %+v", r)
		}
		u := out.(*model.User)
		u.ID = "u1"
		u.Email = "ana@example.com"
		u.Name = "Ana"
		return nil
	}}
	store := newStoreWithToken(t, "tok")
	svc := NewService(api, store, newTestLogger(&bytes.Buffer{}))

	user, err := svc.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if user.ID != "u1" || user.Email != "ana@example.com" {
		t.Errorf("user = %+v", user)
	}
	if !store.Present() {
		t.Error("credential must be kept on success")
	}
}

func TestService_CurrentUser_401ClearsCredential(t *testing.T) {
	api := &mockAPI{doFn: func(context.Context, apiclient.Request, any) error {
		return &model.RequestFailedError{Op: OpMe, StatusCode: http.StatusUnauthorized}
	}}
	store := newStoreWithToken(t, "expired")
	svc := NewService(api, store, newTestLogger(&bytes.Buffer{}))

	_, err := svc.CurrentUser(context.Background())
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if store.Present() {
		t.Error("credential must be cleared after 401")
	}
}

func TestService_CurrentUser_OtherFailureKeepsCredential(t *testing.T) {
	api := &mockAPI{doFn: func(context.Context, apiclient.Request, any) error {
		return &model.RequestFailedError{Op: OpMe, StatusCode: http.StatusInternalServerError}
	}}
	store := newStoreWithToken(t, "tok")
	svc := NewService(api, store, newTestLogger(&bytes.Buffer{}))

	if _, err := svc.CurrentUser(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !store.Present() {
		t.Error("only 401 tears down the credential")
	}
}

func TestService_CurrentUser_AgainstHTTPBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u1","email":"ana@example.com","name":"Ana","oauth_provider":"google","created_at":"2024-05-01T10:00:00","last_login":null}`))
	}))
	defer server.Close()

	store := newStoreWithToken(t, "good")
	client := apiclient.New(server.URL, store, apiclient.Options{HTTPClient: server.Client(), Logger: newTestLogger(&bytes.Buffer{})})
	svc := NewService(client, store, newTestLogger(&bytes.Buffer{}))

	user, err := svc.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if user.OAuthProvider != "google" {
		t.Errorf("OAuthProvider = %q", user.OAuthProvider)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt should be parsed from naive ISO timestamp")
	}
	if !user.LastLogin.IsZero() {
		t.Error("LastLogin should be zero for null")
	}

	if err := store.Set(context.Background(), "bad"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := svc.CurrentUser(context.Background()); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if store.Present() {
		t.Error("credential must be cleared after 401 from backend")
	}
}
