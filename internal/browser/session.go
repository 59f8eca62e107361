package browser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// SessionState is the persisted authentication material of a browsing
// context: its cookie jar and the local storage of the origins it visited.
type SessionState struct {
	SavedAt time.Time              `json:"saved_at"`
	Cookies []*proto.NetworkCookie `json:"cookies"`
	Origins []OriginStorage        `json:"origins"`
}

// OriginStorage is the local storage of one origin.
type OriginStorage struct {
	Origin       string            `json:"origin"`
	LocalStorage map[string]string `json:"local_storage"`
}

// LoadSession reads a session file. A missing file is reported with an error
// satisfying errors.Is(err, os.ErrNotExist).
func LoadSession(path string) (*SessionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the session file atomically. Cookies are credentials, so the
// file is private to the user.
func (s *SessionState) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// CookieParams converts the saved jar into parameters for SetCookies.
func (s *SessionState) CookieParams() []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		if c == nil {
			continue
		}
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
			Priority: c.Priority,
		}
		if !c.Session {
			p.Expires = c.Expires
		}
		params = append(params, p)
	}
	return params
}

// Storage returns the local storage saved for origin, or nil.
func (s *SessionState) Storage(origin string) map[string]string {
	for _, o := range s.Origins {
		if o.Origin == origin {
			return o.LocalStorage
		}
	}
	return nil
}

// SetStorage records the local storage of origin, replacing earlier entries.
func (s *SessionState) SetStorage(origin string, kv map[string]string) {
	for i := range s.Origins {
		if s.Origins[i].Origin == origin {
			s.Origins[i].LocalStorage = kv
			return
		}
	}
	s.Origins = append(s.Origins, OriginStorage{Origin: origin, LocalStorage: kv})
}

// originOf returns scheme://host of u, or "" for non-web locations such as
// about:blank.
func originOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
