package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/reviews/internal/middleware"
	"github.com/hitoshi/reviews/internal/model"
)

// SessionLogServiceInterface はセッション履歴の取得。
type SessionLogServiceInterface interface {
	List(ctx context.Context) ([]model.SessionLog, error)
}

// SessionLogHandler はセッション履歴のハンドラー。
type SessionLogHandler struct {
	service SessionLogServiceInterface
}

// NewSessionLogHandler はSessionLogHandlerを生成する。
func NewSessionLogHandler(service SessionLogServiceInterface) *SessionLogHandler {
	return &SessionLogHandler{service: service}
}

// sessionLogResponse はセッション履歴1件のレスポンス。未知のフィールドはそのまま含める。
type sessionLogResponse struct {
	ID        string          `json:"_id"`
	Email     string          `json:"email"`
	Action    string          `json:"action"`
	CreatedAt model.Timestamp `json:"created_at"`
	Extra     map[string]any  `json:"extra,omitempty"`
}

// List はセッション履歴を返す。
// GET /session-logs
func (h *SessionLogHandler) List(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	resp := make([]sessionLogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, sessionLogResponse{
			ID:        l.ID,
			Email:     l.Email,
			Action:    l.Action,
			CreatedAt: l.CreatedAt,
			Extra:     l.Extra,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
