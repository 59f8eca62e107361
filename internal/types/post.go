package types

import "strings"

// Post is one discovered search result, enriched with its author's profile bio.
// Posts are immutable once extracted and only live inside a Proposal.
type Post struct {
	Text          string `json:"text"`
	Author        string `json:"author"`
	AuthorHandle  string `json:"authorHandle"`
	AuthorProfile string `json:"authorProfile"`
	URL           string `json:"url"`
	Timestamp     string `json:"timestamp"`
}

// HandleSigil prefixes every normalised handle.
const HandleSigil = "@"

// NormalizeHandle returns the handle with exactly one leading sigil,
// or "" when nothing usable remains.
func NormalizeHandle(handle string) string {
	h := strings.TrimSpace(handle)
	h = strings.TrimLeft(h, HandleSigil)
	if h == "" {
		return ""
	}
	return HandleSigil + h
}

// Username strips the sigil from a handle, e.g. for building profile URLs.
func Username(handle string) string {
	return strings.TrimLeft(strings.TrimSpace(handle), HandleSigil)
}

// SearchMode selects the result ordering of a search.
type SearchMode string

const (
	SearchRecent SearchMode = "recent"
	SearchTop    SearchMode = "top"
)

// Valid reports whether m is a known search mode.
func (m SearchMode) Valid() bool {
	return m == SearchRecent || m == SearchTop
}
