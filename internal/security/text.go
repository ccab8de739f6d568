package security

import (
	"strings"

	"golang.org/x/net/html"
)

// SummaryMaxRunes はカード表示用の要約の最大文字数。
const SummaryMaxRunes = 200

// PlainText はHTML断片からテキストノードのみを取り出す。
// scriptとstyleの中身は捨て、連続する空白は1つにまとめる。
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
			sb.WriteByte(' ')
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	s := string(name)
	return s == "script" || s == "style"
}

// Summarize はHTMLをプレーンテキストにし、maxを超える場合は切り詰めて"…"を付ける。
func Summarize(fragment string, max int) string {
	text := PlainText(fragment)
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "…"
}
