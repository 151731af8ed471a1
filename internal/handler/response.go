// Package handler はReViewsクライアントのルートサーフェス（HTTP）を提供する。
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/reviews/internal/guard"
	"github.com/hitoshi/reviews/internal/middleware"
	"github.com/hitoshi/reviews/internal/model"
)

// writeJSON はvをJSONで書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをJSONとしてvに読み込む。
// 失敗時は400を書き込んでfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return false
	}
	return true
}

// routeTitle はルート名に対応する画面タイトルを返す。
func routeTitle(name string) string {
	for _, rt := range guard.Routes {
		if rt.Name == name {
			return rt.Title
		}
	}
	return ""
}

// queryInt は整数のクエリパラメータを読み取る。未指定の場合はdefを返す。
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &model.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return i, nil
}

// queryFloat は数値のクエリパラメータを読み取る。未指定の場合はdefを返す。
func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &model.ValidationError{Field: key, Reason: "must be a number"}
	}
	return f, nil
}

// requiredFloat は必須の数値クエリパラメータを読み取る。
func requiredFloat(r *http.Request, key string) (float64, error) {
	if r.URL.Query().Get(key) == "" {
		return 0, &model.ValidationError{Field: key, Reason: "is required"}
	}
	return queryFloat(r, key, 0)
}
