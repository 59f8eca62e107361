package main

import (
	"fmt"

	"xreply/internal/browser"
	"xreply/internal/config"
	"xreply/internal/drafter"
	"xreply/internal/executor"
	"xreply/internal/logging"
	"xreply/internal/pipeline"
	"xreply/internal/proposal"
	"xreply/internal/scraper"

	"go.uber.org/zap"
)

// app bundles the service with the resources the caller must release.
type app struct {
	svc   *pipeline.Service
	store proposal.Store
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildApp wires every component from the loaded config.
func buildApp(c *config.Config) (*app, error) {
	store, err := proposal.Open(c.Storage, logging.Get(logging.CategoryStore))
	if err != nil {
		return nil, fmt.Errorf("failed to open proposal store: %w", err)
	}

	browserCfg := c.Browser
	browserLog := logging.Get(logging.CategoryBrowser)
	controllers := func() pipeline.Controller {
		return browser.New(browserCfg, browserLog)
	}

	svc := pipeline.New(pipeline.Deps{
		Config:      c,
		Store:       store,
		Controllers: controllers,
		Scraper:     scraper.New(c.Search, logging.Get(logging.CategoryScraper)),
		Executor: executor.New(store, logging.Get(logging.CategoryExecutor),
			executor.OptionsFromConfig(c.Executor, c.Browser)),
		Drafter: drafter.New(c.Reply.Templates),
		Logger:  logging.Get(logging.CategoryPipeline),
	})
	return &app{svc: svc, store: store}, nil
}

// withApp builds the app for a one-shot command and closes it afterwards.
func withApp(fn func(a *app) error) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.BootWarn("failed to close proposal store", zap.Error(err))
		}
	}()
	return fn(a)
}
