//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"xreply/internal/browser"
	"xreply/internal/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newFixture(t *testing.T) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "abc", Path: "/", Expires: time.Now().Add(time.Hour)})
			fmt.Fprintln(w, `<html><body><script>localStorage.setItem("k","v")</script>ok</body></html>`)
		default:
			fmt.Fprintln(w, `
				<html><body>
					<article data-testid="tweet"><span id="t">first</span></article>
					<article data-testid="tweet"><span id="t">second</span></article>
					<button id="btn" onclick="document.body.dataset.clicked='yes'">go</button>
					<div id="box" contenteditable="true"></div>
				</body></html>`)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestController_Page_Integration(t *testing.T) {
	ts := newFixture(t)

	cfg := config.DefaultConfig().Browser
	cfg.SessionFile = filepath.Join(t.TempDir(), "session.json")
	cfg.NavigationTimeout = "10s"

	c := browser.New(cfg, zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, c.Start(ctx, browser.StartOptions{Headless: true}), "Failed to start browser")
	defer func() {
		if err := c.Stop(context.Background()); err != nil {
			t.Logf("Stop error: %v", err)
		}
	}()
	require.ErrorIs(t, c.Start(ctx, browser.StartOptions{Headless: true}), browser.ErrAlreadyStarted)

	page, err := c.Page()
	require.NoError(t, err)
	require.NoError(t, page.Navigate(ctx, ts.URL+"/search"))

	units, err := page.Query(ctx, `article[data-testid="tweet"]`)
	require.NoError(t, err)
	require.Len(t, units, 2)

	child, ok, err := units[1].Find("#t")
	require.NoError(t, err)
	require.True(t, ok)
	text, err := child.Text()
	require.NoError(t, err)
	require.Equal(t, "second", text)

	_, ok, err = page.WaitFor(ctx, "#missing", 500*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)

	btn, ok, err := page.WaitFor(ctx, "#btn", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, btn.Click())

	box, ok, err := page.Has(ctx, "#box")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, box.Click())
	require.NoError(t, page.InsertText(ctx, "hello"))
	require.NoError(t, page.ScrollToBottom(ctx))
	require.NoError(t, page.Screenshot(ctx, filepath.Join(t.TempDir(), "shot.png")))
}

func TestController_SessionPersistence_Integration(t *testing.T) {
	ts := newFixture(t)

	cfg := config.DefaultConfig().Browser
	cfg.SessionFile = filepath.Join(t.TempDir(), "session.json")

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	c := browser.New(cfg, zaptest.NewLogger(t))
	require.NoError(t, c.Start(ctx, browser.StartOptions{Headless: true}))
	page, err := c.Page()
	require.NoError(t, err)
	require.NoError(t, page.Navigate(ctx, ts.URL+"/login"))
	require.NoError(t, c.PersistSession(ctx))
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))

	state, err := browser.LoadSession(cfg.SessionFile)
	require.NoError(t, err)
	require.NotEmpty(t, state.Cookies)
	require.Equal(t, "v", state.Origins[0].LocalStorage["k"])

	require.NoError(t, c.Start(ctx, browser.StartOptions{UseSavedSession: true, Headless: true}))
	defer c.Stop(context.Background())
	page, err = c.Page()
	require.NoError(t, err)
	require.NoError(t, page.Navigate(ctx, ts.URL+"/search"))
	u, err := page.URL(ctx)
	require.NoError(t, err)
	require.Equal(t, ts.URL+"/search", u)
}
