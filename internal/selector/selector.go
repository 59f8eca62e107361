// Package selector filters scraped posts by author-bio keywords.
package selector

import (
	"strings"

	"xreply/internal/types"
)

// DefaultKeywords marks executive and founder bios. Matching is case-sensitive,
// so every casing that should match is listed.
var DefaultKeywords = []string{
	"代表", "CEO", "ceo", "創業者", "経営", "経営者", "代表取締役",
	"founder", "Founder", "FOUNDER", "社長", "Co-Founder", "co-founder",
	"取締役", "役員", "CTO", "cto", "COO", "coo", "CFO", "cfo",
	"起業家", "オーナー", "代表社員", "パートナー",
}

// Select returns, in input order, at most limit posts whose AuthorProfile
// contains any keyword. An empty keyword set takes the first limit posts
// unfiltered. A post with an empty bio never matches a non-empty set.
func Select(posts []types.Post, keywords []string, limit int) []types.Post {
	if limit <= 0 {
		return []types.Post{}
	}

	out := make([]types.Post, 0, min(limit, len(posts)))
	if len(keywords) == 0 {
		return append(out, posts[:min(limit, len(posts))]...)
	}

	for _, p := range posts {
		if len(out) == limit {
			break
		}
		if Matches(p.AuthorProfile, keywords) {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether bio contains at least one non-empty keyword.
func Matches(bio string, keywords []string) bool {
	if bio == "" {
		return false
	}
	for _, k := range keywords {
		if k != "" && strings.Contains(bio, k) {
			return true
		}
	}
	return false
}
