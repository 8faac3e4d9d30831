// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力（Ultra Name、XPイベントのメタデータ）と
// 管理者入力（ミッション説明文）をサニタイズし、XSS攻撃などの
// セキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はコンテンツのサニタイズ機能のインターフェースを定義する。
// ユーザー入力の保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeText はプレーンテキスト入力から全てのHTMLタグを除去する。
	// Ultra Nameやメタデータの文字列値など、マークアップを一切許可しない
	// フィールドに使用する。前後の空白も除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(input string) string

	// SanitizeHTML はリッチテキストをサニタイズして安全なHTMLを返す。
	// ミッション説明文など、限定的なマークアップを許可するフィールドに使用する。
	// 許可タグ（p, br, ul, ol, li, blockquote, pre, code, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	SanitizeHTML(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	strict *bluemonday.Policy
	rich   *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのポリシーを2つ構築する:
//   - strict: 全タグ除去（StrictPolicy）。名前やメタデータ用。
//   - rich: p, br, ul, ol, li, blockquote, pre, code, strong, em を許可。
//     script, iframe, style等は許可リストに含めないことで自動的に除去される。
//     on*イベント属性はbluemondayのデフォルトで許可されないため除去される。
func NewContentSanitizer() *contentSanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	return &contentSanitizer{
		strict: bluemonday.StrictPolicy(),
		rich:   rich,
	}
}

// SanitizeText はプレーンテキスト入力から全てのHTMLタグを除去する。
func (s *contentSanitizer) SanitizeText(input string) string {
	return strings.TrimSpace(s.strict.Sanitize(input))
}

// SanitizeHTML はリッチテキストをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeHTML(rawHTML string) string {
	return s.rich.Sanitize(rawHTML)
}
