package browser

import (
	"context"
	"time"
)

// Page is the single active tab of a started Controller, reduced to what the
// scraper and executor need. Calls are sequential; a Page is not shared
// between concurrent callers.
type Page interface {
	// Navigate replaces the page location and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// URL returns the current location, after any redirects.
	URL(ctx context.Context) (string, error)
	ScrollToBottom(ctx context.Context) error
	// Query returns every element currently matching selector, without waiting.
	Query(ctx context.Context, selector string) ([]Element, error)
	// Has reports whether selector matches right now.
	Has(ctx context.Context, selector string) (Element, bool, error)
	// WaitFor waits up to timeout for selector. A timeout is reported as
	// (nil, false, nil), not as an error.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, bool, error)
	// InsertText types text into the focused element.
	InsertText(ctx context.Context, text string) error
	// Screenshot writes a full-page PNG to path.
	Screenshot(ctx context.Context, path string) error
}

// Element is one DOM node of a Page.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, bool, error)
	// Find returns the first descendant matching selector, without waiting.
	Find(selector string) (Element, bool, error)
	Click() error
}

// Sleep pauses for d or until ctx is done. Fixed settle delays between UI
// steps go through here so cancellation cuts them short.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
