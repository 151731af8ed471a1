package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はレビュー本文などのプレーンテキスト項目からマークアップを除去する。
type TextSanitizer interface {
	// Sanitize は全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// script/styleは中身ごと除去する。エンティティはエスケープせずに元の文字へ戻す。
	Sanitize(text string) string
}

// textSanitizer はTextSanitizerの実装。bluemondayのStrictPolicyを使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はマークアップを除去したテキストを返す。
func (s *textSanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

// compile-time interface check
var (
	_ TextSanitizer = (*textSanitizer)(nil)
	_ ImageFetcher  = (*imageFetcher)(nil)
)
