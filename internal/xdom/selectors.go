// Package xdom isolates everything xreply knows about X's markup: DOM
// selectors, URL shapes and the login-redirect signature. X changes its DOM
// often; update this package when scraping or posting breaks.
package xdom

const (
	// Search results
	PostUnit    = `article[data-testid="tweet"]`
	AuthorBlock = `div[data-testid="User-Name"]`
	PostText    = `div[data-testid="tweetText"]`
	PostTime    = `time[datetime]`
	PostLink    = `a[href*="/status/"]`

	// Profile page
	ProfileBio = `div[data-testid="UserDescription"]`

	// Reply and like controls on a post page
	ReplyButton   = `button[data-testid="reply"]`
	ReplyComposer = `div[data-testid="tweetTextarea_0"]`
	ReplySubmit   = `button[data-testid="tweetButton"]`
	LikeButton    = `button[data-testid="like"]`
	UnlikeButton  = `button[data-testid="unlike"]` // already liked
)

// Attributes read from matched nodes.
const (
	AttrDatetime = "datetime"
	AttrHref     = "href"
)
