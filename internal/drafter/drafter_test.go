package drafter

import (
	"math/rand/v2"
	"strings"
	"testing"

	"xreply/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var post = types.Post{Author: "山田太郎", AuthorHandle: "@yamada"}

func renderings(d *Drafter, p types.Post) map[string]bool {
	out := make(map[string]bool)
	for _, tmpl := range d.Templates() {
		out[d.Render(tmpl, p)] = true
	}
	return out
}

func TestDraftIsOneOfTheRenderings(t *testing.T) {
	d := New(nil)
	known := renderings(d, post)
	require.Len(t, known, len(DefaultTemplates))

	for i := 0; i < 200; i++ {
		got := d.Draft(post)
		assert.True(t, known[got], "unexpected draft %q", got)
		assert.Contains(t, got, post.Author)
		assert.NotContains(t, got, PlaceholderAuthor)
	}
}

func TestDraftReplacesEveryOccurrence(t *testing.T) {
	d := New([]string{"{author} / {author} / {handle}"})
	assert.Equal(t, "山田太郎 / 山田太郎 / @yamada", d.Draft(post))
}

func TestDraftCoversAllTemplates(t *testing.T) {
	d := New([]string{"a {author}", "b {author}", "c {author}"}, WithRand(rand.New(rand.NewPCG(1, 2))))
	seen := make(map[string]bool)
	for i := 0; i < 300; i++ {
		seen[d.Draft(post)] = true
	}
	assert.Len(t, seen, 3)
}

func TestWithPlaceholder(t *testing.T) {
	d := New([]string{"{author}: {first_line}"}, WithPlaceholder("{first_line}", func(p types.Post) string {
		line, _, _ := strings.Cut(p.Text, "\n")
		return line
	}))
	got := d.Draft(types.Post{Author: "Ann", Text: "hello\nworld"})
	assert.Equal(t, "Ann: hello", got)
}

func TestWithPlaceholderOverridesBuiltin(t *testing.T) {
	d := New([]string{"hi {author}"}, WithPlaceholder(PlaceholderAuthor, func(p types.Post) string {
		return strings.ToUpper(p.Author)
	}))
	assert.Equal(t, "hi ANN", d.Draft(types.Post{Author: "ann"}))
}

func TestEmptyTemplatesFallBack(t *testing.T) {
	assert.Equal(t, DefaultTemplates, New([]string{}).Templates())
}
