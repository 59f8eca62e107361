package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// rodPage adapts a rod tab to Page. It also replays saved local storage the
// first time each saved origin is reached.
type rodPage struct {
	page       *rod.Page
	navTimeout time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	saved    *SessionState
	restored map[string]bool
}

func newRodPage(page *rod.Page, navTimeout time.Duration, saved *SessionState, logger *zap.Logger) *rodPage {
	return &rodPage{
		page:       page,
		navTimeout: navTimeout,
		logger:     logger,
		saved:      saved,
		restored:   make(map[string]bool),
	}
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()

	page := p.page.Context(navCtx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	p.replayStorage(ctx)
	return nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (p *rodPage) ScrollToBottom(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *rodPage) Query(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = rodElement{el}
	}
	return out, nil
}

func (p *rodPage) Has(ctx context.Context, selector string) (Element, bool, error) {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, false, fmt.Errorf("query %s: %w", selector, err)
	}
	if !has {
		return nil, false, nil
	}
	return rodElement{el}, true, nil
}

func (p *rodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := p.page.Context(waitCtx).Element(selector)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("wait for %s: %w", selector, err)
	}
	// Rebind so the element outlives the wait deadline.
	return rodElement{el.Context(ctx)}, true, nil
}

func (p *rodPage) InsertText(ctx context.Context, text string) error {
	return p.page.Context(ctx).InsertText(text)
}

func (p *rodPage) Screenshot(ctx context.Context, path string) error {
	data, err := p.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (p *rodPage) replayStorage(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved == nil {
		return
	}

	current, err := p.URL(ctx)
	if err != nil {
		return
	}
	origin := originOf(current)
	if origin == "" || p.restored[origin] {
		return
	}
	p.restored[origin] = true

	kv := p.saved.Storage(origin)
	if len(kv) == 0 {
		return
	}
	if err := restoreStorage(p.page.Context(ctx), kv); err != nil {
		p.logger.Warn("local storage restore failed", zap.String("origin", origin), zap.Error(err))
		return
	}
	p.logger.Debug("local storage restored", zap.String("origin", origin), zap.Int("keys", len(kv)))
}

// snapshot captures the current origin and its local storage.
func (p *rodPage) snapshot(ctx context.Context) (string, map[string]string, error) {
	current, err := p.URL(ctx)
	if err != nil {
		return "", nil, err
	}
	origin := originOf(current)
	if origin == "" {
		return "", nil, nil
	}
	kv, err := snapshotStorage(p.page.Context(ctx))
	return origin, kv, err
}

func snapshotStorage(page *rod.Page) (map[string]string, error) {
	res, err := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			try {
				const out = {};
				for (const key of Object.keys(localStorage)) {
					out[key] = localStorage.getItem(key);
				}
				return JSON.stringify(out);
			} catch (e) {
				return "{}";
			}
		}`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot local storage: %w", err)
	}
	kv := make(map[string]string)
	if res == nil || res.Value.Nil() {
		return kv, nil
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), &kv); err != nil {
		return nil, fmt.Errorf("decode local storage: %w", err)
	}
	return kv, nil
}

func restoreStorage(page *rod.Page, kv map[string]string) error {
	data, err := json.Marshal(kv)
	if err != nil {
		return err
	}
	_, err = page.Evaluate(&rod.EvalOptions{
		JS: `(local) => {
			const l = JSON.parse(local || "{}");
			Object.entries(l).forEach(([k, v]) => localStorage.setItem(k, v));
		}`,
		JSArgs:       []interface{}{string(data)},
		ByValue:      true,
		AwaitPromise: true,
		UserGesture:  true,
	})
	return err
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e rodElement) Find(selector string) (Element, bool, error) {
	has, child, err := e.el.Has(selector)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	return rodElement{child}, true, nil
}

func (e rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}
