package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTimestamp_UnmarshalNaiveISO(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2024-03-01T10:20:30.123456"`), &ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ts.Time, want)
	}
}

func TestTimestamp_UnmarshalRFC3339(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2024-03-01T10:20:30+09:00"`), &ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.UTC().Hour() != 1 {
		t.Errorf("UTC hour = %d, want 1", ts.UTC().Hour())
	}
}

func TestTimestamp_UnmarshalNull(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ts.IsZero() {
		t.Error("null should produce zero timestamp")
	}
}

func TestTimestamp_UnmarshalGarbage_ReturnsError(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestTimestamp_MarshalZeroIsNull(t *testing.T) {
	b, err := json.Marshal(Timestamp{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("Marshal(zero) = %s, want null", b)
	}
}

func TestRequestFailedError_401MatchesErrUnauthorized(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &RequestFailedError{Op: "auth.me", StatusCode: 401})
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("401 should match ErrUnauthorized")
	}

	other := &RequestFailedError{Op: "resenas.get", StatusCode: 500}
	if errors.Is(other, ErrUnauthorized) {
		t.Error("500 should not match ErrUnauthorized")
	}
}

func TestDecodeError_Unwraps(t *testing.T) {
	inner := errors.New("unexpected EOF")
	err := &DecodeError{Op: "auth.me", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("DecodeError should unwrap to inner error")
	}
}

func TestSessionLog_UnmarshalKeepsUnknownFields(t *testing.T) {
	data := `{"_id":"l1","email":"a@example.com","action":"login","created_at":"2024-01-01T00:00:00","ip":"203.0.113.1"}`

	var l SessionLog
	if err := json.Unmarshal([]byte(data), &l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.ID != "l1" || l.Action != "login" {
		t.Errorf("SessionLog = %+v", l)
	}
	if l.Extra["ip"] != "203.0.113.1" {
		t.Errorf("Extra[ip] = %v, want 203.0.113.1", l.Extra["ip"])
	}
	if _, ok := l.Extra["email"]; ok {
		t.Error("known fields must not be copied to Extra")
	}
}

func TestSessionLog_MarshalWritesUnknownFieldsBack(t *testing.T) {
	data := `[{"_id":"l1","email":"a@example.com","action":"login","created_at":"2024-01-01T00:00:00","ip":"203.0.113.1","device":{"os":"android"}}]`

	var logs []SessionLog
	if err := json.Unmarshal([]byte(data), &logs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := json.Marshal(logs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0]["ip"] != "203.0.113.1" {
		t.Errorf("ip = %v, want 203.0.113.1", got[0]["ip"])
	}
	device, _ := got[0]["device"].(map[string]any)
	if device["os"] != "android" {
		t.Errorf("device = %v", got[0]["device"])
	}
	if got[0]["_id"] != "l1" || got[0]["action"] != "login" {
		t.Errorf("known fields = %v", got[0])
	}
}

func TestSessionLog_MarshalKnownFieldsWinOverExtra(t *testing.T) {
	l := SessionLog{ID: "l1", Action: "login", Extra: map[string]any{"action": "spoofed"}}

	out, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["action"] != "login" {
		t.Errorf("action = %v, want login", got["action"])
	}
}
