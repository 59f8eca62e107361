// Package browser owns the headless Chrome process behind xreply: one
// browsing context with one active page, optionally restored from a saved
// session, and guaranteed teardown.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"xreply/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

var (
	// ErrInitialization wraps any failure to bring up the browser or its context.
	ErrInitialization = errors.New("browser initialization failed")
	// ErrNotInitialized is returned by operations that need a started controller.
	ErrNotInitialized = errors.New("browser not started")
	// ErrAlreadyStarted rejects a second Start before Stop.
	ErrAlreadyStarted = errors.New("browser already started")
)

// StartOptions selects how the browsing context is prepared.
type StartOptions struct {
	// Restore cookies and local storage from the session file when it exists.
	UseSavedSession bool
	Headless        bool
}

// Controller owns a Chrome process, one incognito browsing context and the
// single page inside it. Start and Stop bracket every use.
type Controller struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher // nil when attached via ControlURL
	browser  *rod.Browser
	incog    *rod.Browser
	page     *rodPage
	saved    *SessionState
}

// New creates a stopped controller.
func New(cfg config.BrowserConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{cfg: cfg, logger: logger}
}

// Start launches (or attaches to) Chrome and opens the browsing context.
func (c *Controller) Start(ctx context.Context, opts StartOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return ErrAlreadyStarted
	}

	var saved *SessionState
	if opts.UseSavedSession && c.cfg.SessionFile != "" {
		s, err := LoadSession(c.cfg.SessionFile)
		switch {
		case err == nil:
			saved = s
			c.logger.Info("restoring saved session",
				zap.String("file", c.cfg.SessionFile),
				zap.Int("cookies", len(s.Cookies)),
				zap.Time("saved_at", s.SavedAt))
		case errors.Is(err, os.ErrNotExist):
			c.logger.Info("no saved session, starting fresh context", zap.String("file", c.cfg.SessionFile))
		default:
			return fmt.Errorf("%w: %w", ErrInitialization, err)
		}
	}

	controlURL := c.cfg.ControlURL
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().
			Headless(opts.Headless).
			Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		if c.cfg.NoSandbox {
			l = l.NoSandbox(true)
		}
		if c.cfg.Bin != "" {
			l = l.Bin(c.cfg.Bin)
		}
		if c.cfg.Locale != "" {
			l = l.Set(flags.Flag("lang"), c.cfg.Locale)
		}
		u, err := l.Launch()
		if err != nil {
			reap(l)
			return fmt.Errorf("%w: launch chrome: %w", ErrInitialization, err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		reap(l)
		return fmt.Errorf("%w: connect to chrome: %w", ErrInitialization, err)
	}

	incog, page, err := c.openContext(b, saved)
	if err != nil {
		if l != nil {
			_ = b.Close()
		}
		reap(l)
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	c.launcher = l
	c.browser = b
	c.incog = incog
	c.saved = saved
	c.page = newRodPage(page, c.cfg.GetNavigationTimeout(), saved, c.logger)
	c.logger.Info("browser started",
		zap.Bool("headless", opts.Headless),
		zap.Bool("saved_session", saved != nil),
		zap.Bool("attached", l == nil))
	return nil
}

func (c *Controller) openContext(b *rod.Browser, saved *SessionState) (*rod.Browser, *rod.Page, error) {
	incog, err := b.Incognito()
	if err != nil {
		return nil, nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incog.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incog.Close()
		return nil, nil, fmt.Errorf("create page: %w", err)
	}

	c.applyFingerprint(page)

	if saved != nil {
		if params := saved.CookieParams(); len(params) > 0 {
			if err := incog.SetCookies(params); err != nil {
				_ = incog.Close()
				return nil, nil, fmt.Errorf("restore cookies: %w", err)
			}
		}
	}
	return incog, page, nil
}

// applyFingerprint presents a fixed desktop browser. Failures only degrade
// the disguise, so they are logged and ignored.
func (c *Controller) applyFingerprint(page *rod.Page) {
	ua := c.cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: c.cfg.Locale,
	}); err != nil {
		c.logger.Warn("failed to set user agent", zap.Error(err))
	}
	if c.cfg.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: c.cfg.Timezone}).Call(page); err != nil {
			c.logger.Warn("failed to set timezone", zap.String("timezone", c.cfg.Timezone), zap.Error(err))
		}
	}
	if c.cfg.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: c.cfg.Locale}).Call(page); err != nil {
			c.logger.Warn("failed to set locale", zap.String("locale", c.cfg.Locale), zap.Error(err))
		}
	}

	width, height := c.cfg.ViewportWidth, c.cfg.ViewportHeight
	if width == 0 {
		width = 1920
	}
	if height == 0 {
		height = 1080
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		c.logger.Warn("failed to set viewport", zap.Error(err))
	}
}

// Page returns the active page.
func (c *Controller) Page() (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == nil {
		return nil, ErrNotInitialized
	}
	return c.page, nil
}

// Running reports whether Start succeeded and Stop has not run since.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browser != nil
}

// PersistSession writes the context's cookies and the current origin's local
// storage to the session file. Origins saved earlier are kept.
func (c *Controller) PersistSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.incog == nil {
		return ErrNotInitialized
	}
	if c.cfg.SessionFile == "" {
		return errors.New("no session file configured")
	}

	cookies, err := c.incog.GetCookies()
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}

	state := &SessionState{}
	if c.saved != nil {
		state.Origins = append(state.Origins, c.saved.Origins...)
	}
	state.SavedAt = time.Now().UTC()
	state.Cookies = cookies

	origin, kv, err := c.page.snapshot(ctx)
	if err != nil {
		c.logger.Warn("local storage snapshot failed", zap.Error(err))
	} else if origin != "" {
		state.SetStorage(origin, kv)
	}

	if err := state.Save(c.cfg.SessionFile); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.saved = state
	c.logger.Info("session persisted",
		zap.String("file", c.cfg.SessionFile),
		zap.Int("cookies", len(cookies)),
		zap.Int("origins", len(state.Origins)))
	return nil
}

// Stop closes the page, the browsing context and, when it was launched here,
// the Chrome process. Stopping a stopped controller is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser == nil {
		return nil
	}

	var errs []error
	if c.page != nil {
		if err := c.page.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if c.incog != nil {
		if err := c.incog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if c.launcher != nil {
		if err := c.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		reap(c.launcher)
	}

	c.launcher = nil
	c.browser = nil
	c.incog = nil
	c.page = nil
	c.saved = nil

	err := errors.Join(errs...)
	if err != nil {
		c.logger.Warn("browser stopped with errors", zap.Error(err))
	} else {
		c.logger.Info("browser stopped")
	}
	return err
}

// reap kills a launched Chrome and removes its profile directory.
func reap(l *launcher.Launcher) {
	if l == nil {
		return
	}
	l.Kill()
	l.Cleanup()
}
