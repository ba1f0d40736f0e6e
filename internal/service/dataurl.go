package service

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultImageMIME = "image/jpeg"

// BuildDataURL encodes data as a base64 data URL. An empty mime is sniffed
// from the content.
func BuildDataURL(data []byte, mime string) string {
	if mime == "" {
		mime = sniffImageMIME(data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits a base64 data URL into its MIME type and payload.
func ParseDataURL(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return "", nil, ErrInvalidDataURL
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload := s[len("data:"):comma], s[comma+1:]
	if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrInvalidDataURL)
	}
	mime := strings.TrimSpace(meta[:len(meta)-len(";base64")])

	data, err := decodeBase64(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if mime == "" {
		mime = sniffImageMIME(data)
	}
	return mime, data, nil
}

// decodeBase64 accepts padded, unpadded and URL-safe payloads.
func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		case '-':
			return '+'
		case '_':
			return '/'
		}
		return r
	}, payload)
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}

// sniffImageMIME detects the content type, falling back to JPEG for anything
// that is not recognised as an image.
func sniffImageMIME(data []byte) string {
	m := mimetype.Detect(data)
	if strings.HasPrefix(m.String(), "image/") {
		return m.String()
	}
	return defaultImageMIME
}

// looksLikeBase64 reports whether s is long enough and uses only the base64 alphabet.
func looksLikeBase64(s string) bool {
	if len(s) < 20 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '+', r == '/', r == '=', r == ' ', r == '\n', r == '\r', r == '\t':
		default:
			return false
		}
	}
	return true
}

// NormalizeImageURL turns the catalog's image field into something a client
// can display: data URLs pass through, base64 payloads (bare, or smuggled in
// as a URL path) become data URLs, relative paths are resolved against base.
func NormalizeImageURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	base = strings.TrimRight(base, "/")
	lower := strings.ToLower(raw)
	isAbsolute := strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")

	// A JPEG payload starts with "/9j/", so the leading slash of the path is kept.
	path := raw
	switch {
	case base != "" && strings.HasPrefix(lower, strings.ToLower(base)):
		path = strings.SplitN(raw[len(base):], "?", 2)[0]
	case isAbsolute:
		if u, err := url.Parse(raw); err == nil {
			path = u.Path
		}
	}

	candidate := strings.NewReplacer("-", "+", "_", "/").Replace(path)
	if len(candidate) > 20 && looksLikeBase64(candidate) {
		return base64DataURL(candidate)
	}

	switch {
	case strings.HasPrefix(raw, "/"):
		return base + raw
	case isAbsolute:
		return raw
	case looksLikeBase64(raw):
		return base64DataURL(raw)
	}
	return base + "/" + strings.TrimLeft(raw, "/")
}

// base64DataURL wraps an already encoded payload, sniffing the MIME from its
// first bytes.
func base64DataURL(payload string) string {
	head := payload
	if len(head) > 32 {
		head = head[:32]
	}
	mime := defaultImageMIME
	if data, err := decodeBase64(head[:len(head)/4*4]); err == nil && len(data) > 0 {
		mime = sniffImageMIME(data)
	}
	return "data:" + mime + ";base64," + payload
}
