// Package browsertest provides a scripted in-memory browser.Page for tests of
// code that drives the browser.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xreply/internal/browser"
)

// Node is one scripted DOM element.
type Node struct {
	// Name labels the node in Page.Clicks.
	Name     string
	Text     string
	TextErr  error
	Attrs    map[string]string
	Children map[string]*Node
	// OnClick runs after the click is recorded.
	OnClick func(p *Page)
}

// Doc is the DOM served for one URL: selector to matching nodes.
type Doc struct {
	Nodes map[string][]*Node
	// Initial and PerScroll model lazy loading. When PerScroll > 0 only
	// Initial + scrolls*PerScroll nodes of each selector are visible.
	Initial   int
	PerScroll int
}

// Page is a scripted browser.Page. The zero value serves about:blank.
type Page struct {
	mu sync.Mutex

	docs      map[string]*Doc
	redirects map[string]string
	navErrs   map[string]error
	current   string
	scrolls   int

	Navigations []string
	Clicks      []string
	Inserted    []string
	Screenshots []string
}

var _ browser.Page = (*Page)(nil)

// New returns an empty scripted page.
func New() *Page {
	return &Page{
		docs:      make(map[string]*Doc),
		redirects: make(map[string]string),
		navErrs:   make(map[string]error),
		current:   "about:blank",
	}
}

// SetDoc serves doc at url.
func (p *Page) SetDoc(url string, doc *Doc) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[url] = doc
	return p
}

// Redirect makes navigation to from land on to.
func (p *Page) Redirect(from, to string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirects[from] = to
	return p
}

// FailNavigation makes navigation to url return err.
func (p *Page) FailNavigation(url string, err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navErrs[url] = err
	return p
}

// Scrolls returns how often ScrollToBottom ran on the current document.
func (p *Page) Scrolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls
}

// Current returns the current location.
func (p *Page) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Navigations = append(p.Navigations, url)
	if err, ok := p.navErrs[url]; ok {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if to, ok := p.redirects[url]; ok {
		url = to
	}
	p.current = url
	p.scrolls = 0
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Current(), nil
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	return nil
}

func (p *Page) Query(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	nodes := p.visibleLocked(selector)
	out := make([]browser.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &element{page: p, node: n}
	}
	return out, nil
}

func (p *Page) Has(ctx context.Context, selector string) (browser.Element, bool, error) {
	els, err := p.Query(ctx, selector)
	if err != nil || len(els) == 0 {
		return nil, false, err
	}
	return els[0], true, nil
}

// WaitFor does not wait: the scripted DOM never changes on its own.
func (p *Page) WaitFor(ctx context.Context, selector string, _ time.Duration) (browser.Element, bool, error) {
	return p.Has(ctx, selector)
}

func (p *Page) InsertText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Inserted = append(p.Inserted, text)
	return nil
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Screenshots = append(p.Screenshots, path)
	return nil
}

func (p *Page) visibleLocked(selector string) []*Node {
	doc, ok := p.docs[p.current]
	if !ok {
		return nil
	}
	nodes := doc.Nodes[selector]
	if doc.PerScroll > 0 {
		n := doc.Initial + p.scrolls*doc.PerScroll
		if n < len(nodes) {
			nodes = nodes[:n]
		}
	}
	return nodes
}

type element struct {
	page *Page
	node *Node
}

func (e *element) Text() (string, error) {
	if e.node.TextErr != nil {
		return "", e.node.TextErr
	}
	return e.node.Text, nil
}

func (e *element) Attribute(name string) (string, bool, error) {
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

func (e *element) Find(selector string) (browser.Element, bool, error) {
	child, ok := e.node.Children[selector]
	if !ok || child == nil {
		return nil, false, nil
	}
	return &element{page: e.page, node: child}, true, nil
}

func (e *element) Click() error {
	e.page.mu.Lock()
	e.page.Clicks = append(e.page.Clicks, e.node.Name)
	e.page.mu.Unlock()
	if e.node.OnClick != nil {
		e.node.OnClick(e.page)
	}
	return nil
}
