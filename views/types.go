package views

import (
	"html/template"

	"github.com/codegrabber/codegrabber/analytics"
	"github.com/codegrabber/codegrabber/backend"
)

// SiteConfig holds the site-wide values every page needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	JSONLD      template.JS
	Refresh     string // meta refresh target, e.g. "5;url=/auth/"
}

// Page is the chrome shared by every full page: navbar state, theme and
// the CSRF token for forms.
type Page struct {
	Site   SiteConfig
	Meta   PageMeta
	User   *backend.User
	Theme  string
	CSRF   string
	Path   string
	Search string
}

// Dark reports whether the page renders with the dark palette.
func (p Page) Dark() bool {
	return p.Theme == "dark"
}

// LoggedIn reports whether a user is signed in.
func (p Page) LoggedIn() bool {
	return p.User != nil
}

// FeedPage is one page of the infinite blog list. NextURL is empty when
// there is nothing more to load.
type FeedPage struct {
	Posts   []backend.BlogPost
	NextURL string
	Empty   string
}

// ShareLink is a share-to target on the post page.
type ShareLink struct {
	Name string
	URL  string
}

// PostForm is the create/edit form state.
type PostForm struct {
	ID          string
	Title       string
	Description string
	Content     string
	Tags        string
	CoverImage  string
	Slug        string
}

// ManagedPost is a row of the manage-blogs table.
type ManagedPost struct {
	backend.BlogPost
	Views int
}

// AssetItem is a row of the asset manager.
type AssetItem struct {
	backend.Asset
	URL     string
	Snippet string
}

type HomeData struct {
	Page
	Recent []backend.BlogPost
}

type BlogsData struct {
	Page
	Feed FeedPage
	Tag  string
}

type PostData struct {
	Page
	Post    backend.BlogPost
	Content template.HTML
	Author  *backend.User
	Share   []ShareLink
}

type ProfileData struct {
	Page
	Profile backend.User
	Posts   []backend.BlogPost
}

type AuthData struct {
	Page
	SignUp   bool
	Error    string
	Email    string
	Username string
}

type AccountData struct {
	Page
	Message string
	Error   string
}

type EditorData struct {
	Page
	Form    PostForm
	Message string
	Error   string
	Preview template.HTML
}

// Editing reports whether the form edits an existing post.
func (d EditorData) Editing() bool {
	return d.Form.ID != ""
}

type ManageData struct {
	Page
	Posts   []ManagedPost
	Message string
	Error   string
}

type AssetsData struct {
	Page
	Assets  []AssetItem
	Message string
	Error   string
}

// LoginRequiredData renders the "please log in" notice on owner-only pages.
type LoginRequiredData struct {
	Page
	Action string
}

type ErrorData struct {
	Page
	Code    int
	Message string
}

// DailyBar is one bar of the views chart. Percent is relative to the
// busiest day in the period.
type DailyBar struct {
	Date    string
	Views   int
	Percent int
}

// StatsData is the per-post analytics page. Stats is nil when analytics
// are disabled.
type StatsData struct {
	Page
	Post   backend.BlogPost
	Stats  *analytics.PostStats
	Bars   []DailyBar
	Period string
	Error  string
}
