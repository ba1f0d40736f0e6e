package richtext

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Preamble opens every document produced by ToRTF.
const Preamble = `{\rtf1\ansi\deff0{\fonttbl{\f0 Arial;}}\pard\sa200\sl276\slmult1\f0\fs24 `

var openTags = map[string]string{
	"strong": `\b `,
	"b":      `\b `,
	"em":     `\i `,
	"i":      `\i `,
	"u":      `\ul `,
	"br":     `\par `,
	"p":      `\par `,
	"li":     `\bullet `,
}

var closeTags = map[string]string{
	"strong": `\b0 `,
	"b":      `\b0 `,
	"em":     `\i0 `,
	"i":      `\i0 `,
	"u":      `\ulnone `,
	"p":      `\par `,
	"li":     `\par `,
}

// ToRTF converts editor HTML back to RTF.
//
// Whitespace-only input returns "" so callers can tell "no observation" apart
// from an empty document. Tags outside the supported subset are dropped and
// their text is kept.
func ToRTF(htmlText string) string {
	if strings.TrimSpace(htmlText) == "" {
		return ""
	}

	var body strings.Builder
	z := html.NewTokenizer(strings.NewReader(htmlText))
	rawDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return Preamble + body.String() + "}"
		case html.TextToken:
			if rawDepth == 0 {
				writeRTFText(&body, string(z.Text()))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name := tagName(z)
			if name == "script" || name == "style" {
				rawDepth++
				continue
			}
			body.WriteString(openTags[name])
		case html.EndTagToken:
			name := tagName(z)
			if (name == "script" || name == "style") && rawDepth > 0 {
				rawDepth--
				continue
			}
			body.WriteString(closeTags[name])
		}
	}
}

func tagName(z *html.Tokenizer) string {
	name, _ := z.TagName()
	return strings.ToLower(string(name))
}

// writeRTFText escapes decoded text for an RTF body.
func writeRTFText(b *strings.Builder, text string) {
	runes := []rune(text)
	for i, r := range runes {
		switch {
		case r == '\\' || r == '{' || r == '}':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\r':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				continue
			}
			b.WriteString(`\par `)
		case r == '\n':
			b.WriteString(`\par `)
		case r == '\t':
			b.WriteString(`\tab `)
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		case r >= 0x80 && r <= 0xff:
			fmt.Fprintf(b, `\'%02x`, r)
		case r > 0xff && r <= 0xffff:
			fmt.Fprintf(b, `\u%d?`, r)
		default:
			b.WriteByte('?')
		}
	}
}
