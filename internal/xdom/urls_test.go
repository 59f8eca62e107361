package xdom

import (
	"testing"

	"xreply/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestSearchURL(t *testing.T) {
	assert.Equal(t, "https://x.com/search?q=AI+%E8%B5%B7%E6%A5%AD&f=live", SearchURL("https://x.com/", "AI 起業", types.SearchRecent))
	assert.Equal(t, "https://x.com/search?q=go&f=top", SearchURL("", "go", types.SearchTop))
}

func TestProfileAndLoginURL(t *testing.T) {
	assert.Equal(t, "https://x.com/alice", ProfileURL("https://x.com", "@alice"))
	assert.Equal(t, "http://127.0.0.1:9000/bob", ProfileURL("http://127.0.0.1:9000/", "bob"))
	assert.Equal(t, "https://x.com/i/flow/login", LoginURL(""))
}

func TestIsLoginRedirect(t *testing.T) {
	assert.True(t, IsLoginRedirect("https://x.com/i/flow/login?redirect_after_login=%2Fsearch"))
	assert.True(t, IsLoginRedirect("https://x.com/login"))
	assert.False(t, IsLoginRedirect("https://x.com/search?q=login"))
	assert.False(t, IsLoginRedirect("https://x.com/search?q=go&f=live"))
}

func TestParseAuthor(t *testing.T) {
	tests := []struct {
		block, name, handle string
		ok                  bool
	}{
		{"Alice Smith\n@alice_s\n·\n2h", "Alice Smith", "@alice_s", true},
		{"山田太郎@yamada · 5m", "山田太郎", "@yamada", true},
		{"@solo", "", "@solo", true},
		{"No handle here", "", "", false},
		{"Broken @ sign", "", "", false},
	}
	for _, tt := range tests {
		name, handle, ok := ParseAuthor(tt.block)
		assert.Equal(t, tt.ok, ok, tt.block)
		assert.Equal(t, tt.name, name, tt.block)
		assert.Equal(t, tt.handle, handle, tt.block)
	}
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://x.com/alice/status/1", AbsoluteURL("https://x.com", "/alice/status/1"))
	assert.Equal(t, "https://x.com/alice/status/1", AbsoluteURL("https://x.com/", "alice/status/1"))
	assert.Equal(t, "https://other.test/a", AbsoluteURL("https://x.com", "https://other.test/a"))
	assert.Equal(t, "", AbsoluteURL("https://x.com", ""))
}
