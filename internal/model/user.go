// Package model はドメインモデルを定義する。
package model

import "encoding/json"

// User は認証済みユーザーを表す。GET /auth/me のレスポンス。
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Picture       string    `json:"picture,omitempty"`
	OAuthProvider string    `json:"oauth_provider"`
	CreatedAt     Timestamp `json:"created_at"`
	LastLogin     Timestamp `json:"last_login"`
}

// SessionLog はバックエンドが記録したセッションイベントを表す。
// フィールドはバックエンド実装に依存するため、未知の項目はExtraに保持する。
type SessionLog struct {
	ID        string         `json:"_id"`
	Email     string         `json:"email"`
	Action    string         `json:"action"`
	CreatedAt Timestamp      `json:"created_at"`
	Extra     map[string]any `json:"-"`
}

var sessionLogKnownKeys = []string{"_id", "email", "action", "created_at"}

// UnmarshalJSON は既知フィールドを読み取り、残りをExtraに格納する。
func (l *SessionLog) UnmarshalJSON(data []byte) error {
	type plain SessionLog
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range sessionLogKnownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*l = SessionLog(p)
	return nil
}

// MarshalJSON は既知フィールドにExtraの項目を同じ階層で合わせて出力する。
// キーが重複した場合は既知フィールドを優先する。
func (l SessionLog) MarshalJSON() ([]byte, error) {
	type plain SessionLog
	known, err := json.Marshal(plain(l))
	if err != nil {
		return nil, err
	}
	if len(l.Extra) == 0 {
		return known, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(l.Extra)+len(fields))
	for k, v := range l.Extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}
