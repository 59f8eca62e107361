// Package executor posts an approved reply and likes the target post, then
// marks the proposal executed.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xreply/internal/browser"
	"xreply/internal/config"
	"xreply/internal/metrics"
	"xreply/internal/proposal"
	"xreply/internal/types"
	"xreply/internal/xdom"

	"go.uber.org/zap"
)

// ErrUIElementNotFound is matched by every UIElementNotFoundError.
var ErrUIElementNotFound = errors.New("ui element not found")

// UIElementNotFoundError reports a control that did not appear on the post
// page: layout drift, missing permissions or a deleted post.
type UIElementNotFoundError struct {
	Control  string
	Selector string
}

func (e *UIElementNotFoundError) Error() string {
	return fmt.Sprintf("%s control not found (%s)", e.Control, e.Selector)
}

func (e *UIElementNotFoundError) Unwrap() error { return ErrUIElementNotFound }

// Options tunes the pacing of the UI steps.
type Options struct {
	PageSettleDelay time.Duration
	StepDelay       time.Duration
	ElementTimeout  time.Duration
}

// OptionsFromConfig reads the executor pacing from config.
func OptionsFromConfig(exec config.ExecutorConfig, b config.BrowserConfig) Options {
	return Options{
		PageSettleDelay: exec.GetPageSettleDelay(),
		StepDelay:       exec.GetStepDelay(),
		ElementTimeout:  b.GetElementTimeout(),
	}
}

// Executor replays the reply-and-like flow for one proposal.
type Executor struct {
	store  proposal.Store
	logger *zap.Logger
	opts   Options
	sleep  func(context.Context, time.Duration) error
}

// New creates an Executor.
func New(store proposal.Store, logger *zap.Logger, opts Options) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{store: store, logger: logger, opts: opts, sleep: browser.Sleep}
}

// WithSleep replaces the step pause, e.g. with a no-op in tests.
func (e *Executor) WithSleep(fn func(context.Context, time.Duration) error) *Executor {
	e.sleep = fn
	return e
}

// Execute posts the proposal's reply, likes the post and marks the proposal
// executed. Any failure before the final store update leaves the proposal
// as it was, so a retry starts from scratch. A reply that was posted before
// a later step failed will be posted again on retry.
func (e *Executor) Execute(ctx context.Context, page browser.Page, id string) (result types.Proposal, err error) {
	defer func() { metrics.Executions.WithLabelValues(metrics.Result(err)).Inc() }()

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return types.Proposal{}, err
	}
	if p.Status.Terminal() {
		return p, fmt.Errorf("%w: proposal %s is %s", proposal.ErrInvalidTransition, id, p.Status)
	}

	log := e.logger.With(zap.String("proposal", id), zap.String("url", p.Post.URL))
	log.Info("executing proposal")

	if err := e.reply(ctx, page, p, log); err != nil {
		log.Warn("reply failed", zap.Error(err))
		return p, err
	}
	if err := e.like(ctx, page, log); err != nil {
		log.Warn("like failed", zap.Error(err))
		return p, err
	}

	updated, err := e.store.Update(ctx, id, types.StatusPatch(types.StatusExecuted))
	if err != nil {
		return p, fmt.Errorf("mark executed: %w", err)
	}
	log.Info("proposal executed")
	return updated, nil
}

func (e *Executor) reply(ctx context.Context, page browser.Page, p types.Proposal, log *zap.Logger) error {
	if p.Post.URL == "" {
		return errors.New("proposal has no post url")
	}
	if err := page.Navigate(ctx, p.Post.URL); err != nil {
		return fmt.Errorf("open post: %w", err)
	}
	if err := e.sleep(ctx, e.opts.PageSettleDelay); err != nil {
		return err
	}

	if err := e.click(ctx, page, "reply", xdom.ReplyButton); err != nil {
		return err
	}
	if err := e.sleep(ctx, e.opts.StepDelay); err != nil {
		return err
	}

	if err := e.click(ctx, page, "reply composer", xdom.ReplyComposer); err != nil {
		return err
	}
	if err := page.InsertText(ctx, p.ReplyText); err != nil {
		return fmt.Errorf("type reply: %w", err)
	}
	if err := e.sleep(ctx, e.opts.StepDelay); err != nil {
		return err
	}

	if err := e.click(ctx, page, "reply submit", xdom.ReplySubmit); err != nil {
		return err
	}
	if err := e.sleep(ctx, e.opts.StepDelay); err != nil {
		return err
	}
	log.Debug("reply posted")
	return nil
}

func (e *Executor) like(ctx context.Context, page browser.Page, log *zap.Logger) error {
	_, liked, err := page.Has(ctx, xdom.UnlikeButton)
	if err != nil {
		return fmt.Errorf("check like state: %w", err)
	}
	if liked {
		log.Debug("post already liked")
		return nil
	}
	if err := e.click(ctx, page, "like", xdom.LikeButton); err != nil {
		return err
	}
	log.Debug("post liked")
	return e.sleep(ctx, e.opts.StepDelay)
}

func (e *Executor) click(ctx context.Context, page browser.Page, control, selector string) error {
	el, ok, err := page.WaitFor(ctx, selector, e.opts.ElementTimeout)
	if err != nil {
		return fmt.Errorf("find %s: %w", control, err)
	}
	if !ok {
		return &UIElementNotFoundError{Control: control, Selector: selector}
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("click %s: %w", control, err)
	}
	return nil
}
