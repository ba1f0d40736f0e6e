// Package richtext converts product observations between the narrow RTF subset
// stored by the catalog and the HTML subset shown in the editor.
//
// Only bold, italic, underline, paragraphs, tabs and bullet items are understood.
// Styles are flat toggles rather than a stack scoped by braces; producers in use
// never nest style groups.
package richtext

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	emptyPlaceholder = `<p class="rtf-preview-empty">No content.</p>`
	plainOpen        = `<p class="rtf-preview-plain">`
	rtfSignature     = `{\rtf`
)

// groups whose content is never rendered
var skippedGroups = []string{"fonttbl", "colortbl", "stylesheet", "info", "pict"}

// styleState holds the flat style toggles of the RTF scanner.
type styleState struct {
	bold      bool
	italic    bool
	underline bool
	inBullet  bool
}

// ToHTML renders an RTF document as an HTML fragment.
// It never fails: malformed escapes become '?' and unknown control words are dropped.
func ToHTML(rtf string) string {
	if strings.TrimSpace(rtf) == "" {
		return emptyPlaceholder
	}
	trimmed := strings.TrimSpace(rtf)
	if !strings.HasPrefix(strings.ToLower(trimmed), rtfSignature) {
		return plainOpen + escapeHTML(trimmed) + "</p>"
	}

	s := &rtfScanner{src: trimmed}
	s.scan()
	return cleanup(s.out.String())
}

type rtfScanner struct {
	src   string
	pos   int
	out   strings.Builder
	state styleState
	// high surrogate waiting for its pair
	pendingHigh rune
}

func (s *rtfScanner) scan() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case '\\':
			s.pos++
			s.escape()
		case '{':
			s.openGroup()
		case '}':
			s.pos++
		case '\r', '\n':
			s.pos++
		default:
			r, size := utf8.DecodeRuneInString(s.src[s.pos:])
			s.pos += size
			s.emitText(r)
		}
	}
	s.closeAll()
}

// escape handles everything after a backslash.
func (s *rtfScanner) escape() {
	if s.pos >= len(s.src) {
		return
	}
	c := s.src[s.pos]

	switch c {
	case '\\', '{', '}':
		s.pos++
		s.emitText(rune(c))
		return
	case '~':
		s.pos++
		s.flushSurrogate()
		s.out.WriteString("&nbsp;")
		return
	case '-':
		s.pos++
		return
	case '_':
		s.pos++
		s.emitText('-')
		return
	case '\r', '\n':
		s.pos++
		s.control("par")
		return
	case '\'':
		s.pos++
		s.hexByte()
		return
	}

	if c == 'u' && s.startsNumber(s.pos+1) {
		s.pos++
		s.unicodeEscape()
		return
	}

	if s.pos+4 <= len(s.src) && isHex4(s.src[s.pos:s.pos+4]) {
		v, _ := strconv.ParseUint(s.src[s.pos:s.pos+4], 16, 32)
		s.pos += 4
		s.emitCodePoint(rune(v))
		return
	}

	word := s.readControlWord()
	if word == "" {
		// stray "\0" style framing and unhandled control symbols such as
		// \* or \| are dropped along with the backslash
		if s.pos < len(s.src) && s.src[s.pos] < utf8.RuneSelf && !isLetter(s.src[s.pos]) {
			s.pos++
		}
		return
	}
	s.control(strings.ToLower(word))
}

// hexByte decodes \'XX as a Latin-1 code point.
func (s *rtfScanner) hexByte() {
	if s.pos+2 > len(s.src) {
		s.pos = len(s.src)
		s.emitText('?')
		return
	}
	v, err := strconv.ParseUint(s.src[s.pos:s.pos+2], 16, 8)
	s.pos += 2
	if err != nil {
		s.emitText('?')
		return
	}
	if v == 0 {
		return
	}
	s.emitText(rune(v))
}

// unicodeEscape decodes \uN with an optional sign, then drops the fallback character.
func (s *rtfScanner) unicodeEscape() {
	start := s.pos
	if s.src[s.pos] == '-' {
		s.pos++
	}
	for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
		s.pos++
	}
	n, err := strconv.Atoi(s.src[start:s.pos])
	if err != nil || n < -32768 || n > 65535 {
		s.emitText('?')
	} else {
		if n < 0 {
			n += 65536
		}
		s.emitCodePoint(rune(n))
	}

	if s.pos < len(s.src) && s.src[s.pos] == ' ' {
		s.pos++
	}
	if s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\', '{', '}', '\r', '\n':
		default:
			_, size := utf8.DecodeRuneInString(s.src[s.pos:])
			s.pos += size
		}
	}
}

// readControlWord scans a letter followed by letters, digits or hyphens and
// swallows a single trailing space.
func (s *rtfScanner) readControlWord() string {
	start := s.pos
	if s.pos >= len(s.src) || !isLetter(s.src[s.pos]) {
		return ""
	}
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if !isLetter(c) && !isDigit(c) && c != '-' {
			break
		}
		s.pos++
	}
	word := s.src[start:s.pos]
	if s.pos < len(s.src) && s.src[s.pos] == ' ' {
		s.pos++
	}
	return word
}

func (s *rtfScanner) control(cmd string) {
	s.flushSurrogate()
	st := &s.state
	switch cmd {
	case "b":
		if !st.bold {
			s.out.WriteString("<strong>")
			st.bold = true
		}
	case "b0":
		if st.bold {
			s.out.WriteString("</strong>")
			st.bold = false
		}
	case "i":
		if !st.italic {
			s.out.WriteString("<em>")
			st.italic = true
		}
	case "i0":
		if st.italic {
			s.out.WriteString("</em>")
			st.italic = false
		}
	case "ul":
		if !st.underline {
			s.out.WriteString("<u>")
			st.underline = true
		}
	case "ulnone", "ul0":
		if st.underline {
			s.out.WriteString("</u>")
			st.underline = false
		}
	case "par", "line":
		if st.inBullet {
			s.out.WriteString("</li>")
			st.inBullet = false
		}
		s.out.WriteString("<br/>")
	case "bullet":
		if st.inBullet {
			s.out.WriteString("</li>")
		}
		s.out.WriteString("<li>")
		st.inBullet = true
	case "tab":
		s.out.WriteString("&nbsp;&nbsp;&nbsp;")
	}
}

// openGroup consumes a '{' and, when the group is a destination with no
// visible content, the whole balanced group.
func (s *rtfScanner) openGroup() {
	j := s.pos + 1
	for j < len(s.src) && isSpace(s.src[j]) {
		j++
	}
	if j+1 < len(s.src) && s.src[j] == '\\' && isSkippedDestination(s.src[j+1:]) {
		s.skipGroup()
		return
	}
	s.pos++
}

func isSkippedDestination(rest string) bool {
	if strings.HasPrefix(rest, "*") {
		return true
	}
	lower := strings.ToLower(rest)
	for _, g := range skippedGroups {
		if strings.HasPrefix(lower, g) {
			return true
		}
	}
	return false
}

// skipGroup advances past the group starting at s.pos. Escaped braces do not
// count towards the depth.
func (s *rtfScanner) skipGroup() {
	depth := 0
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				s.pos++
				return
			}
		}
		s.pos++
	}
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
}

func (s *rtfScanner) emitCodePoint(r rune) {
	switch {
	case r == 0:
		s.flushSurrogate()
	case utf16.IsSurrogate(r) && r < 0xDC00:
		s.flushSurrogate()
		s.pendingHigh = r
	case utf16.IsSurrogate(r):
		if s.pendingHigh != 0 {
			combined := utf16.DecodeRune(s.pendingHigh, r)
			s.pendingHigh = 0
			s.writeEscaped(combined)
		}
	default:
		s.emitText(r)
	}
}

func (s *rtfScanner) emitText(r rune) {
	s.flushSurrogate()
	s.writeEscaped(r)
}

// flushSurrogate drops a high surrogate that was not followed by its pair.
func (s *rtfScanner) flushSurrogate() {
	s.pendingHigh = 0
}

func (s *rtfScanner) writeEscaped(r rune) {
	switch r {
	case '&':
		s.out.WriteString("&amp;")
	case '<':
		s.out.WriteString("&lt;")
	case '>':
		s.out.WriteString("&gt;")
	case '"':
		s.out.WriteString("&quot;")
	default:
		s.out.WriteRune(r)
	}
}

func (s *rtfScanner) closeAll() {
	if s.state.bold {
		s.out.WriteString("</strong>")
	}
	if s.state.italic {
		s.out.WriteString("</em>")
	}
	if s.state.underline {
		s.out.WriteString("</u>")
	}
	if s.state.inBullet {
		s.out.WriteString("</li>")
	}
	s.state = styleState{}
}

func (s *rtfScanner) startsNumber(i int) bool {
	if i < len(s.src) && isDigit(s.src[i]) {
		return true
	}
	return i+1 < len(s.src) && s.src[i] == '-' && isDigit(s.src[i+1])
}

func escapeHTML(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isHex4(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
