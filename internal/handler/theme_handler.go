package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/reviews/internal/middleware"
	"github.com/hitoshi/reviews/internal/model"
	"github.com/hitoshi/reviews/internal/theme"
)

// ThemeControllerInterface はテーマハンドラーが使うコントローラー操作。
type ThemeControllerInterface interface {
	GetTheme(ctx context.Context) (theme.Theme, error)
	SetTheme(ctx context.Context, t theme.Theme) error
	SystemChanged(ctx context.Context, isDark bool) error
}

// DocumentStateReader はテーマ反映結果の参照。theme.MemoryDocumentが実装する。
type DocumentStateReader interface {
	State() theme.DocumentState
}

// ThemeHandler はテーマ設定のハンドラー。
type ThemeHandler struct {
	controller ThemeControllerInterface
	document   DocumentStateReader
}

// NewThemeHandler はThemeHandlerを生成する。
func NewThemeHandler(controller ThemeControllerInterface, document DocumentStateReader) *ThemeHandler {
	return &ThemeHandler{
		controller: controller,
		document:   document,
	}
}

type themeResponse struct {
	Theme    theme.Theme         `json:"theme"`
	Document theme.DocumentState `json:"document"`
}

type setThemeRequest struct {
	Theme string `json:"theme"`
}

type systemSchemeRequest struct {
	Dark bool `json:"dark"`
}

// Get は保存済みのテーマと現在の反映状態を返す。
// GET /api/theme
func (h *ThemeHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)
}

// Set はテーマを変更して保存する。
// PUT /api/theme
func (h *ThemeHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := theme.Parse(req.Theme)
	if err != nil {
		middleware.WriteError(w, r, &model.ValidationError{Field: "theme", Reason: "must be light, dark or system"})
		return
	}
	if err := h.controller.SetTheme(r.Context(), t); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	h.respond(w, r)
}

// SystemChanged はシステム配色の変更を通知する。
// POST /api/theme/system
func (h *ThemeHandler) SystemChanged(w http.ResponseWriter, r *http.Request) {
	var req systemSchemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.controller.SystemChanged(r.Context(), req.Dark); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	h.respond(w, r)
}

func (h *ThemeHandler) respond(w http.ResponseWriter, r *http.Request) {
	t, err := h.controller.GetTheme(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeResponse{Theme: t, Document: h.document.State()})
}
