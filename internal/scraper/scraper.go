// Package scraper extracts candidate posts from X search results and enriches
// each with its author's profile bio. All work happens sequentially on the
// one page handed in by the caller.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"xreply/internal/browser"
	"xreply/internal/config"
	"xreply/internal/metrics"
	"xreply/internal/types"
	"xreply/internal/xdom"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrSessionExpired means the saved session no longer authenticates and the
// operator has to log in again. It is never retried.
var ErrSessionExpired = errors.New("session expired: re-establish the login session")

// Query is one search request.
type Query struct {
	Text  string
	Limit int              // result units to read; <= 0 uses search.scrape_limit
	Mode  types.SearchMode // empty uses search.mode
}

// Scraper runs searches against a browser page.
type Scraper struct {
	cfg     config.SearchConfig
	logger  *zap.Logger
	limiter *rate.Limiter
	sleep   func(context.Context, time.Duration) error
	now     func() time.Time
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithSleep replaces the settle/scroll pause, e.g. with a no-op in tests.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(s *Scraper) { s.sleep = fn }
}

// WithClock sets the clock used for screenshot names.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a Scraper.
func New(cfg config.SearchConfig, logger *zap.Logger, opts ...Option) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if d := cfg.GetProfileInterval(); d > 0 {
		limit = rate.Every(d)
	}
	s := &Scraper{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   browser.Sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search opens the results view for q, loads enough results, extracts up to
// q.Limit posts and fills in their authors' bios. Output order follows the
// results view. Units without a parseable handle are dropped and logged.
func (s *Scraper) Search(ctx context.Context, page browser.Page, q Query) ([]types.Post, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, errors.New("search query is empty")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.ScrapeLimit
	}
	mode := q.Mode
	if mode == "" {
		mode = types.SearchMode(s.cfg.Mode)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid search mode %q", mode)
	}

	target := xdom.SearchURL(s.cfg.BaseURL, text, mode)
	s.logger.Info("opening search", zap.String("query", text), zap.String("mode", string(mode)), zap.Int("limit", limit))
	if err := page.Navigate(ctx, target); err != nil {
		return nil, fmt.Errorf("open search: %w", err)
	}
	if err := s.sleep(ctx, s.cfg.GetSettleDelay()); err != nil {
		return nil, err
	}

	location, err := page.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("read location: %w", err)
	}
	if xdom.IsLoginRedirect(location) {
		s.logger.Warn("search redirected to login", zap.String("location", location))
		return nil, ErrSessionExpired
	}

	s.screenshot(ctx, page)

	if err := s.loadResults(ctx, page, limit); err != nil {
		return nil, err
	}

	posts, err := s.extract(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, page, posts); err != nil {
		return nil, err
	}

	metrics.PostsScraped.Add(float64(len(posts)))
	s.logger.Info("search complete", zap.String("query", text), zap.Int("posts", len(posts)))
	return posts, nil
}

// loadResults scrolls until limit distinct results are visible, the view
// stops growing for stable_scrolls consecutive scrolls, or max_scrolls is
// reached. Lack of progress is not an error.
func (s *Scraper) loadResults(ctx context.Context, page browser.Page, limit int) error {
	seen, err := s.countResults(ctx, page)
	if err != nil {
		return err
	}

	stable := 0
	scrolls := 0
	for scrolls < s.cfg.MaxScrolls && seen < limit {
		if err := page.ScrollToBottom(ctx); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		scrolls++
		if err := s.sleep(ctx, s.cfg.GetScrollPause()); err != nil {
			return err
		}

		n, err := s.countResults(ctx, page)
		if err != nil {
			return err
		}
		if n > seen {
			seen = n
			stable = 0
			continue
		}
		stable++
		if s.cfg.StableScrolls > 0 && stable >= s.cfg.StableScrolls {
			break
		}
	}

	s.logger.Debug("results loaded", zap.Int("visible", seen), zap.Int("scrolls", scrolls))
	return nil
}

// countResults counts distinct permalinks among the visible units. Units
// without a permalink count individually.
func (s *Scraper) countResults(ctx context.Context, page browser.Page) (int, error) {
	units, err := page.Query(ctx, xdom.PostUnit)
	if err != nil {
		return 0, fmt.Errorf("query results: %w", err)
	}
	seen := make(map[string]struct{}, len(units))
	anonymous := 0
	for _, u := range units {
		href := attrOf(u, xdom.PostLink, xdom.AttrHref)
		if href == "" {
			anonymous++
			continue
		}
		seen[href] = struct{}{}
	}
	return len(seen) + anonymous, nil
}

func (s *Scraper) extract(ctx context.Context, page browser.Page, limit int) ([]types.Post, error) {
	units, err := page.Query(ctx, xdom.PostUnit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	if len(units) > limit {
		units = units[:limit]
	}

	posts := make([]types.Post, 0, len(units))
	for i, u := range units {
		p, err := s.parseUnit(u)
		if err != nil {
			s.logger.Warn("skipping result unit", zap.Int("index", i), zap.Error(err))
			metrics.PostsSkipped.Inc()
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

var errNoHandle = errors.New("no author handle")

func (s *Scraper) parseUnit(u browser.Element) (types.Post, error) {
	block, ok, err := u.Find(xdom.AuthorBlock)
	if err != nil {
		return types.Post{}, fmt.Errorf("author block: %w", err)
	}
	if !ok {
		return types.Post{}, errNoHandle
	}
	raw, err := block.Text()
	if err != nil {
		return types.Post{}, fmt.Errorf("author block text: %w", err)
	}
	name, handle, ok := xdom.ParseAuthor(raw)
	if !ok {
		return types.Post{}, fmt.Errorf("%w in %q", errNoHandle, raw)
	}

	return types.Post{
		Text:         textOf(u, xdom.PostText),
		Author:       name,
		AuthorHandle: handle,
		URL:          xdom.AbsoluteURL(s.cfg.BaseURL, attrOf(u, xdom.PostLink, xdom.AttrHref)),
		Timestamp:    attrOf(u, xdom.PostTime, xdom.AttrDatetime),
	}, nil
}

// enrich fills AuthorProfile, visiting each distinct author once. A failed
// lookup leaves the bio empty.
func (s *Scraper) enrich(ctx context.Context, page browser.Page, posts []types.Post) error {
	bios := make(map[string]string)
	for i := range posts {
		handle := posts[i].AuthorHandle
		bio, ok := bios[handle]
		if !ok {
			var err error
			bio, err = s.profileBio(ctx, page, handle)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				s.logger.Warn("profile lookup failed", zap.String("handle", handle), zap.Error(err))
				metrics.ProfileLookups.WithLabelValues(metrics.ResultError).Inc()
				bio = ""
			} else if bio == "" {
				metrics.ProfileLookups.WithLabelValues(metrics.ResultEmpty).Inc()
			} else {
				metrics.ProfileLookups.WithLabelValues(metrics.ResultOK).Inc()
			}
			bios[handle] = bio
		}
		posts[i].AuthorProfile = bio
	}
	return nil
}

// profileBio opens the profile of handle and returns its bio text, "" when
// the profile has none.
func (s *Scraper) profileBio(ctx context.Context, page browser.Page, handle string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if err := page.Navigate(ctx, xdom.ProfileURL(s.cfg.BaseURL, handle)); err != nil {
		return "", err
	}
	if err := s.sleep(ctx, s.cfg.GetProfileSettleDelay()); err != nil {
		return "", err
	}
	el, ok, err := page.Has(ctx, xdom.ProfileBio)
	if err != nil || !ok {
		return "", err
	}
	bio, err := el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(bio), nil
}

func (s *Scraper) screenshot(ctx context.Context, page browser.Page) {
	if s.cfg.ScreenshotDir == "" {
		return
	}
	path := filepath.Join(s.cfg.ScreenshotDir, "search-"+s.now().Format("20060102-150405")+".png")
	if err := page.Screenshot(ctx, path); err != nil {
		s.logger.Warn("debug screenshot failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Debug("debug screenshot saved", zap.String("path", path))
}

// textOf returns the trimmed text of the first child matching selector, or "".
func textOf(el browser.Element, selector string) string {
	child, ok, err := el.Find(selector)
	if err != nil || !ok {
		return ""
	}
	text, err := child.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// attrOf returns attribute name of the first child matching selector, or "".
func attrOf(el browser.Element, selector, name string) string {
	child, ok, err := el.Find(selector)
	if err != nil || !ok {
		return ""
	}
	v, _, err := child.Attribute(name)
	if err != nil {
		return ""
	}
	return v
}
