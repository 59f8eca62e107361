package browser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	in := &SessionState{
		SavedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Cookies: []*proto.NetworkCookie{{
			Name:     "auth_token",
			Value:    "secret",
			Domain:   ".x.com",
			Path:     "/",
			Expires:  1893456000,
			HTTPOnly: true,
			Secure:   true,
			SameSite: proto.NetworkCookieSameSiteNone,
		}},
	}
	in.SetStorage("https://x.com", map[string]string{"theme": "dark"})
	require.NoError(t, in.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := LoadSession(path)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSessionMissingFile(t *testing.T) {
	_, err := LoadSession(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadSessionCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := LoadSession(path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}

func TestCookieParams(t *testing.T) {
	s := &SessionState{Cookies: []*proto.NetworkCookie{
		{Name: "persistent", Value: "1", Domain: ".x.com", Path: "/", Expires: 1893456000},
		{Name: "session", Value: "2", Domain: ".x.com", Path: "/", Expires: -1, Session: true},
		nil,
	}}
	params := s.CookieParams()
	require.Len(t, params, 2)
	assert.Equal(t, "persistent", params[0].Name)
	assert.Equal(t, proto.TimeSinceEpoch(1893456000), params[0].Expires)
	assert.Equal(t, "session", params[1].Name)
	assert.Zero(t, params[1].Expires)
}

func TestSetStorageReplacesOrigin(t *testing.T) {
	s := &SessionState{}
	s.SetStorage("https://x.com", map[string]string{"a": "1"})
	s.SetStorage("https://example.com", map[string]string{"b": "2"})
	s.SetStorage("https://x.com", map[string]string{"a": "3"})

	require.Len(t, s.Origins, 2)
	assert.Equal(t, map[string]string{"a": "3"}, s.Storage("https://x.com"))
	assert.Nil(t, s.Storage("https://other.test"))
}

func TestOriginOf(t *testing.T) {
	tests := map[string]string{
		"https://x.com/search?q=go": "https://x.com",
		"http://127.0.0.1:8080/a":   "http://127.0.0.1:8080",
		"about:blank":               "",
		"chrome://newtab":           "",
		"":                          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, originOf(in), in)
	}
}
