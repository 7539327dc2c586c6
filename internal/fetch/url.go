package fetch

import (
	"net/url"
	"regexp"
	"strings"
)

var percentEscapeRe = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

// NormalizeURL adds the http scheme to a scheme-less URL and drops the
// fragment.
func NormalizeURL(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	if i := strings.Index(u, "#"); i >= 0 {
		u = u[:i]
	}
	return u
}

// EncodeURLUTF8 normalizes an input URL and percent-encodes its path as
// UTF-8. A path that already contains an escape sequence is left alone.
func EncodeURLUTF8(rawURL string) string {
	u := NormalizeURL(rawURL)

	schemeEnd := strings.Index(u, "://") + len("://")
	rest := u[schemeEnd:]

	hostEnd := strings.IndexAny(rest, "/?")
	if hostEnd < 0 {
		return u
	}
	host, rest := rest[:hostEnd], rest[hostEnd:]

	path, query := rest, ""
	if i := strings.Index(rest, "?"); i >= 0 {
		path, query = rest[:i], rest[i:]
	}

	if !percentEscapeRe.MatchString(path) {
		path = quotePath(path)
	}

	return u[:schemeEnd] + host + path + query
}

func quotePath(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		if isUnreserved(c) || c == '/' || c == '+' {
			b.WriteByte(c)
			continue
		}
		b.WriteString("%")
		b.WriteString(strings.ToUpper(hexByte(c)))
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func hexByte(c byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[c>>4], digits[c&0x0f]})
}

// ResolveReference resolves href against the page URL base, the way a
// browser resolves a link. An unparseable href is returned as is.
func ResolveReference(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// LastPathSegment returns the last non-empty path component of a URL
func LastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	return parts[len(parts)-1]
}
