package xdom

import (
	"net/url"
	"regexp"
	"strings"

	"xreply/internal/types"
)

// DefaultBaseURL is the site root used when none is configured.
const DefaultBaseURL = "https://x.com"

// loginPaths mark a redirect to the sign-in flow.
var loginPaths = []string{"/login", "/i/flow/login"}

var handlePattern = regexp.MustCompile(`@(\w+)`)

// SearchURL builds the results URL for query. Recent maps to the live tab.
func SearchURL(base, query string, mode types.SearchMode) string {
	f := "live"
	if mode == types.SearchTop {
		f = "top"
	}
	return trimBase(base) + "/search?q=" + url.QueryEscape(query) + "&f=" + f
}

// ProfileURL is the profile page of handle, with or without its sigil.
func ProfileURL(base, handle string) string {
	return trimBase(base) + "/" + types.Username(handle)
}

// LoginURL is the interactive sign-in page.
func LoginURL(base string) string {
	return trimBase(base) + "/i/flow/login"
}

// IsLoginRedirect reports whether location is part of the sign-in flow.
func IsLoginRedirect(location string) bool {
	path := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		path = u.Path
	}
	for _, p := range loginPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// ParseAuthor splits the text of an author block into the display name and
// the normalised handle. ok is false when no handle is present.
func ParseAuthor(block string) (name, handle string, ok bool) {
	m := handlePattern.FindStringSubmatch(block)
	if m == nil {
		return "", "", false
	}
	before, _, _ := strings.Cut(block, "@")
	return strings.TrimSpace(before), types.NormalizeHandle(m[1]), true
}

// AbsoluteURL resolves a permalink href against base.
func AbsoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return trimBase(base) + href
}

func trimBase(base string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}
