package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/reviews/internal/logger"
	"github.com/hitoshi/reviews/internal/storage"
	"github.com/hitoshi/reviews/internal/theme"
)

func newRealThemeHandler(t *testing.T, systemDark bool) (*ThemeHandler, *theme.MemoryDocument) {
	t.Helper()
	doc := theme.NewMemoryDocument()
	ctrl := theme.NewController(storage.NewMemoryKV(), doc, systemDark, logger.Discard())
	if err := ctrl.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return NewThemeHandler(ctrl, doc), doc
}

func decodeTheme(t *testing.T, w *httptest.ResponseRecorder) themeResponse {
	t.Helper()
	var body themeResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestThemeHandler_Get_AfterInitializeIsLight(t *testing.T) {
	h, _ := newRealThemeHandler(t, true)

	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/api/theme", nil))

	body := decodeTheme(t, w)
	if body.Theme != theme.Light {
		t.Errorf("theme = %q, want light", body.Theme)
	}
	if body.Document.Attributes[theme.SchemeAttribute] != "light" {
		t.Errorf("document = %+v, want light scheme after initialize", body.Document)
	}
}

func TestThemeHandler_Set_Dark(t *testing.T) {
	h, doc := newRealThemeHandler(t, false)

	w := httptest.NewRecorder()
	h.Set(w, httptest.NewRequest(http.MethodPut, "/api/theme", strings.NewReader(`{"theme":"dark"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeTheme(t, w); body.Theme != theme.Dark {
		t.Errorf("theme = %q, want dark", body.Theme)
	}
	if !doc.HasClass(theme.DarkClass) {
		t.Error("dark class should be applied")
	}
}

func TestThemeHandler_Set_InvalidTheme_Returns400(t *testing.T) {
	h, _ := newRealThemeHandler(t, false)

	w := httptest.NewRecorder()
	h.Set(w, httptest.NewRequest(http.MethodPut, "/api/theme", strings.NewReader(`{"theme":"sepia"}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestThemeHandler_SystemChanged_FollowsOnlyInSystemMode(t *testing.T) {
	h, doc := newRealThemeHandler(t, false)

	// system選択中はシステム配色に追従する
	w := httptest.NewRecorder()
	h.Set(w, httptest.NewRequest(http.MethodPut, "/api/theme", strings.NewReader(`{"theme":"system"}`)))
	w = httptest.NewRecorder()
	h.SystemChanged(w, httptest.NewRequest(http.MethodPost, "/api/theme/system", strings.NewReader(`{"dark":true}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !doc.HasClass(theme.DarkClass) {
		t.Fatal("system dark should apply in system mode")
	}

	// 明示的なlightはシステム変更を無視する
	w = httptest.NewRecorder()
	h.Set(w, httptest.NewRequest(http.MethodPut, "/api/theme", strings.NewReader(`{"theme":"light"}`)))
	w = httptest.NewRecorder()
	h.SystemChanged(w, httptest.NewRequest(http.MethodPost, "/api/theme/system", strings.NewReader(`{"dark":true}`)))
	if doc.HasClass(theme.DarkClass) {
		t.Error("explicit light must ignore system changes")
	}
}

func TestThemeHandler_SetFailure_Returns500(t *testing.T) {
	h := NewThemeHandler(&mockThemeController{
		setThemeFn: func(ctx context.Context, th theme.Theme) error { return errBoom },
	}, theme.NewMemoryDocument())

	w := httptest.NewRecorder()
	h.Set(w, httptest.NewRequest(http.MethodPut, "/api/theme", strings.NewReader(`{"theme":"dark"}`)))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
