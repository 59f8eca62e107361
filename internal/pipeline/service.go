// Package pipeline orchestrates one operator request at a time: it owns the
// browser controller lifecycle and wires scraping, selection, drafting,
// storage and execution together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"xreply/internal/browser"
	"xreply/internal/config"
	"xreply/internal/drafter"
	"xreply/internal/executor"
	"xreply/internal/metrics"
	"xreply/internal/proposal"
	"xreply/internal/scraper"
	"xreply/internal/selector"
	"xreply/internal/types"
	"xreply/internal/xdom"

	"go.uber.org/zap"
)

// ErrInvalidRequest marks caller mistakes such as an empty query.
var ErrInvalidRequest = errors.New("invalid request")

// Controller is the browser lifecycle the service drives. *browser.Controller
// implements it.
type Controller interface {
	Start(ctx context.Context, opts browser.StartOptions) error
	Page() (browser.Page, error)
	PersistSession(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ControllerFactory creates a stopped controller for one request.
type ControllerFactory func() Controller

// Deps are the collaborators of a Service.
type Deps struct {
	Config      *config.Config
	Store       proposal.Store
	Controllers ControllerFactory
	Scraper     *scraper.Scraper
	Executor    *executor.Executor
	Drafter     *drafter.Drafter
	Logger      *zap.Logger
	Now         func() time.Time
}

// SearchRequest asks for new proposals.
type SearchRequest struct {
	Query string
	// Limit caps the proposals created; <= 0 uses selection.limit.
	Limit int
	// Keywords filter author bios. nil uses the configured keywords; an empty
	// non-nil slice accepts every post.
	Keywords []string
	Mode     types.SearchMode
}

// Service is the boundary used by the HTTP API and the CLI.
type Service struct {
	store       proposal.Store
	controllers ControllerFactory
	scraper     *scraper.Scraper
	executor    *executor.Executor
	logger      *zap.Logger
	now         func() time.Time
	headless    bool
	baseURL     string

	// session admits one browser controller at a time.
	session sync.Mutex

	settingsMu sync.RWMutex
	selection  config.SelectionConfig
	drafter    *drafter.Drafter
}

// New creates a Service.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	dr := d.Drafter
	if dr == nil {
		dr = drafter.New(d.Config.Reply.Templates)
	}
	return &Service{
		store:       d.Store,
		controllers: d.Controllers,
		scraper:     d.Scraper,
		executor:    d.Executor,
		logger:      logger,
		now:         now,
		headless:    d.Config.Browser.Headless,
		baseURL:     d.Config.Search.BaseURL,
		selection:   d.Config.Selection,
		drafter:     dr,
	}
}

// Reload applies the hot-reloadable settings: selection keywords and limit,
// and reply templates.
func (s *Service) Reload(cfg *config.Config) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.selection = cfg.Selection
	s.drafter = drafter.New(cfg.Reply.Templates)
	s.logger.Info("settings reloaded",
		zap.Int("keywords", len(cfg.Selection.Keywords)),
		zap.Int("templates", len(cfg.Reply.Templates)))
}

func (s *Service) settings() (config.SelectionConfig, *drafter.Drafter) {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.selection, s.drafter
}

// Search scrapes candidates for req.Query, keeps those whose author bio
// matches, drafts replies and stores them as pending proposals. Finding
// nothing is not an error.
func (s *Service) Search(ctx context.Context, req SearchRequest) (created []types.Proposal, err error) {
	start := s.now()
	defer func() {
		metrics.ObserveSearchDuration(start)
		result := metrics.Result(err)
		if err == nil && len(created) == 0 {
			result = metrics.ResultEmpty
		}
		metrics.Searches.WithLabelValues(result).Inc()
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if req.Mode != "" && !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}

	selection, dr := s.settings()
	limit := req.Limit
	if limit <= 0 {
		limit = selection.Limit
	}
	keywords := req.Keywords
	if keywords == nil {
		keywords = selection.Keywords
	}

	log := s.logger.With(zap.String("query", query))
	var posts []types.Post
	err = s.withBrowser(ctx, browser.StartOptions{UseSavedSession: true, Headless: s.headless},
		func(_ Controller, page browser.Page) error {
			var err error
			posts, err = s.scraper.Search(ctx, page, scraper.Query{Text: query, Mode: req.Mode})
			return err
		})
	if err != nil {
		log.Warn("search failed", zap.Error(err))
		return nil, err
	}

	selected := selector.Select(posts, keywords, limit)
	log.Info("posts selected",
		zap.Int("scraped", len(posts)),
		zap.Int("selected", len(selected)),
		zap.Int("keywords", len(keywords)))

	now := s.now()
	created = make([]types.Proposal, 0, len(selected))
	for _, p := range selected {
		created = append(created, proposal.New(p, dr.Draft(p), now))
	}
	if err := s.store.AddBatch(ctx, created); err != nil {
		return nil, err
	}
	metrics.ProposalsCreated.Add(float64(len(created)))
	return created, nil
}

// Execute runs the reply-and-like flow for proposal id.
func (s *Service) Execute(ctx context.Context, id string) (types.Proposal, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return types.Proposal{}, err
	}
	if p.Status.Terminal() {
		return p, fmt.Errorf("%w: proposal %s is %s", proposal.ErrInvalidTransition, id, p.Status)
	}

	var out types.Proposal
	err = s.withBrowser(ctx, browser.StartOptions{UseSavedSession: true, Headless: s.headless},
		func(_ Controller, page browser.Page) error {
			var err error
			out, err = s.executor.Execute(ctx, page, id)
			return err
		})
	if err != nil {
		return types.Proposal{}, err
	}
	return out, nil
}

// Login opens the sign-in page in a visible, fresh browser, waits for the
// operator to finish signing in, then saves the session for later requests.
func (s *Service) Login(ctx context.Context, wait func(ctx context.Context) error) error {
	return s.withBrowser(ctx, browser.StartOptions{UseSavedSession: false, Headless: false},
		func(c Controller, page browser.Page) error {
			if err := page.Navigate(ctx, xdom.LoginURL(s.baseURL)); err != nil {
				return fmt.Errorf("open login page: %w", err)
			}
			if err := wait(ctx); err != nil {
				return err
			}
			return c.PersistSession(ctx)
		})
}

// List returns every proposal.
func (s *Service) List(ctx context.Context) ([]types.Proposal, error) {
	return s.store.List(ctx)
}

// Get returns one proposal.
func (s *Service) Get(ctx context.Context, id string) (types.Proposal, error) {
	return s.store.Get(ctx, id)
}

// Update edits the reply text and/or status of a proposal.
func (s *Service) Update(ctx context.Context, id string, patch types.Patch) (types.Proposal, error) {
	if err := patch.Validate(); err != nil {
		return types.Proposal{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.store.Update(ctx, id, patch)
}

// Delete removes a proposal.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// withBrowser starts a controller, hands its page to fn and always stops it.
// Requests queue here so only one controller exists at a time.
func (s *Service) withBrowser(ctx context.Context, opts browser.StartOptions, fn func(Controller, browser.Page) error) error {
	s.session.Lock()
	defer s.session.Unlock()

	c := s.controllers()
	if err := c.Start(ctx, opts); err != nil {
		_ = c.Stop(context.WithoutCancel(ctx))
		return err
	}
	defer func() {
		if err := c.Stop(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("browser stop failed", zap.Error(err))
		}
	}()

	page, err := c.Page()
	if err != nil {
		return err
	}
	return fn(c, page)
}
