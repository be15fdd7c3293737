package content

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Excerpt reduces an HTML blog body to at most limit runes of plain text.
// Script and style contents are dropped and whitespace is collapsed.
func Excerpt(body string, limit int) string {
	z := html.NewTokenizer(strings.NewReader(body))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return truncate(strings.Join(strings.Fields(b.String()), " "), limit)
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawText(name) {
				skip++
			}
			breakWord(&b, name)
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawText(name) && skip > 0 {
				skip--
			}
			breakWord(&b, name)
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			breakWord(&b, name)
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

var inline = map[string]bool{
	"a": true, "b": true, "i": true, "em": true, "strong": true, "span": true,
	"u": true, "small": true, "code": true, "sub": true, "sup": true, "mark": true,
}

// breakWord separates text on either side of a block-level tag.
func breakWord(b *strings.Builder, tag []byte) {
	if !inline[string(tag)] {
		b.WriteByte(' ')
	}
}

func isRawText(tag []byte) bool {
	s := string(tag)
	return s == "script" || s == "style"
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:limit]), " ")
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
