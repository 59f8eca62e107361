// Package drafter renders reply text for a scraped post from a fixed set of
// templates. Templates reference post fields through named placeholders such
// as {author}.
package drafter

import (
	"math/rand/v2"
	"strings"
	"sync"

	"xreply/internal/types"
)

// Built-in placeholders.
const (
	PlaceholderAuthor = "{author}"
	PlaceholderHandle = "{handle}"
)

// DefaultTemplates are used when no templates are configured.
var DefaultTemplates = []string{
	"{author}さん、勉強になります！",
	"{author}さん、参考になりました。ありがとうございます！",
	"{author}さん、素晴らしい視点ですね！",
	"{author}さん、まさにそのとおりですね。",
	"{author}さん、とても共感しました！",
	"{author}さん、面白い内容ですね！",
	"{author}さん、興味深いお話です。",
	"{author}さん、ありがとうございます！勉強になりました。",
}

// Resolver produces the substitution for one placeholder.
type Resolver func(types.Post) string

// Drafter picks a template uniformly at random and fills its placeholders.
// It is safe for concurrent use.
type Drafter struct {
	templates    []string
	placeholders map[string]Resolver
	order        []string

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Drafter.
type Option func(*Drafter)

// WithRand makes template selection use r, e.g. a seeded source in tests.
func WithRand(r *rand.Rand) Option {
	return func(d *Drafter) { d.rng = r }
}

// WithPlaceholder registers an additional named placeholder, or replaces a
// built-in one. name includes the braces.
func WithPlaceholder(name string, fn Resolver) Option {
	return func(d *Drafter) { d.register(name, fn) }
}

// New creates a Drafter. An empty template list falls back to DefaultTemplates.
func New(templates []string, opts ...Option) *Drafter {
	if len(templates) == 0 {
		templates = DefaultTemplates
	}
	d := &Drafter{
		templates:    append([]string(nil), templates...),
		placeholders: make(map[string]Resolver),
	}
	d.register(PlaceholderAuthor, func(p types.Post) string { return p.Author })
	d.register(PlaceholderHandle, func(p types.Post) string { return p.AuthorHandle })
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Drafter) register(name string, fn Resolver) {
	if _, ok := d.placeholders[name]; !ok {
		d.order = append(d.order, name)
	}
	d.placeholders[name] = fn
}

// Templates returns a copy of the configured templates.
func (d *Drafter) Templates() []string {
	return append([]string(nil), d.templates...)
}

// Draft returns one randomly chosen template rendered for post.
func (d *Drafter) Draft(post types.Post) string {
	return d.Render(d.templates[d.pick()], post)
}

// Render fills every registered placeholder in tmpl from post.
func (d *Drafter) Render(tmpl string, post types.Post) string {
	pairs := make([]string, 0, 2*len(d.order))
	for _, name := range d.order {
		pairs = append(pairs, name, d.placeholders[name](post))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func (d *Drafter) pick() int {
	n := len(d.templates)
	if d.rng == nil {
		return rand.IntN(n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(n)
}
