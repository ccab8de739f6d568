package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// InstructionsSanitizer はレシピの作り方（InstructionsText）に含まれるHTMLをサニタイズする。
// 手順の表示に必要な段落・リスト・強調のみを残し、リンクと画像は許可しない。
type InstructionsSanitizer struct {
	policy *bluemonday.Policy
}

// NewInstructionsSanitizer はInstructionsSanitizerを生成する。
func NewInstructionsSanitizer() *InstructionsSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em", "b", "i",
		"h3", "h4",
	)
	return &InstructionsSanitizer{policy: p}
}

// Sanitize は安全なHTMLを返す。スレッドセーフ。
func (s *InstructionsSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
