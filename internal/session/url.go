package session

import (
	"net/url"
	"strings"
)

const sessionIDParam = "session_id="

// ExtractSessionID finds the one-time session id in a return URL. The
// fragment form (#session_id=) is checked before the query form
// (?session_id= or &session_id=). The value runs to the next '&' or '#'
// and is returned as-is. An empty value counts as absent.
func ExtractSessionID(rawURL string) (string, bool) {
	if v, ok := valueAfter(rawURL, "#"+sessionIDParam); ok {
		return v, true
	}
	if v, ok := valueAfter(rawURL, "?"+sessionIDParam); ok {
		return v, true
	}
	return valueAfter(rawURL, "&"+sessionIDParam)
}

func valueAfter(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(marker):]
	if end := strings.IndexAny(rest, "&#"); end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// AuthorizeURL builds <authorize>?<param>=<escaped redirect>.
func AuthorizeURL(authorize, param, redirect string) string {
	if param == "" {
		param = "redirect"
	}
	sep := "?"
	if strings.Contains(authorize, "?") {
		sep = "&"
	}
	return authorize + sep + url.QueryEscape(param) + "=" + url.QueryEscape(redirect)
}

// StripSessionID masks every session id value so the URL can be logged.
func StripSessionID(rawURL string) string {
	var b strings.Builder
	rest := rawURL
	for {
		i := strings.Index(rest, sessionIDParam)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:i+len(sessionIDParam)])
		rest = rest[i+len(sessionIDParam):]
		end := strings.IndexAny(rest, "&#")
		if end < 0 {
			end = len(rest)
		}
		if end > 0 {
			b.WriteString("REDACTED")
		}
		rest = rest[end:]
	}
}
