package browsertest

import (
	"xreply/internal/xdom"
)

// PostFixture describes one search-result unit.
type PostFixture struct {
	Author    string
	Handle    string // without sigil; empty renders an unparseable author block
	Text      string
	Timestamp string
	Href      string // relative permalink, e.g. /alice/status/1
}

// PostUnit renders f with X's result-unit structure.
func PostUnit(f PostFixture) *Node {
	author := f.Author
	if f.Handle != "" {
		author += "\n@" + f.Handle + "\n·\n1h"
	}
	children := map[string]*Node{
		xdom.AuthorBlock: {Name: "author", Text: author},
		xdom.PostText:    {Name: "text", Text: f.Text},
	}
	if f.Timestamp != "" {
		children[xdom.PostTime] = &Node{Name: "time", Attrs: map[string]string{xdom.AttrDatetime: f.Timestamp}}
	}
	if f.Href != "" {
		children[xdom.PostLink] = &Node{Name: "link", Attrs: map[string]string{xdom.AttrHref: f.Href}}
	}
	return &Node{Name: "post:" + f.Href, Children: children}
}

// SearchDoc renders a results view containing posts in order.
func SearchDoc(posts ...PostFixture) *Doc {
	units := make([]*Node, len(posts))
	for i, p := range posts {
		units[i] = PostUnit(p)
	}
	return &Doc{Nodes: map[string][]*Node{xdom.PostUnit: units}}
}

// ProfileDoc renders a profile page with bio. An empty bio omits the node.
func ProfileDoc(bio string) *Doc {
	doc := &Doc{Nodes: map[string][]*Node{}}
	if bio != "" {
		doc.Nodes[xdom.ProfileBio] = []*Node{{Name: "bio", Text: bio}}
	}
	return doc
}

// PostPage configures PostPageDoc.
type PostPage struct {
	NoReplyButton bool
	NoComposer    bool
	NoLikeButton  bool
	Liked         bool
}

// PostPageDoc renders a post page with the reply and like controls. Clicking
// like flips the page to the liked variant.
func PostPageDoc(opts PostPage) *Doc {
	doc := &Doc{Nodes: map[string][]*Node{}}
	if !opts.NoReplyButton {
		doc.Nodes[xdom.ReplyButton] = []*Node{{Name: "reply"}}
	}
	if !opts.NoComposer {
		doc.Nodes[xdom.ReplyComposer] = []*Node{{Name: "composer"}}
		doc.Nodes[xdom.ReplySubmit] = []*Node{{Name: "submit"}}
	}
	switch {
	case opts.Liked:
		doc.Nodes[xdom.UnlikeButton] = []*Node{{Name: "unlike"}}
	case !opts.NoLikeButton:
		doc.Nodes[xdom.LikeButton] = []*Node{{
			Name: "like",
			OnClick: func(*Page) {
				delete(doc.Nodes, xdom.LikeButton)
				doc.Nodes[xdom.UnlikeButton] = []*Node{{Name: "unlike"}}
			},
		}}
	}
	return doc
}
