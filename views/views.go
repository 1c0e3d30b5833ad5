// Package views holds the HTML pages, partials and static assets. Pages are
// html/template files embedded in the binary and exposed as templ
// components so handlers render them the same way as any other component.
package views

import (
	"embed"
	"html/template"
	"io/fs"

	"github.com/a-h/templ"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{
	"home",
	"blogs",
	"post",
	"profile",
	"auth",
	"auth-failure",
	"account",
	"editor",
	"manage",
	"stats",
	"assets",
	"login-required",
	"error",
}

var pages = mustParse()

// mustParse builds one template set per page: the layout and partials
// cloned, plus the page's own "content".
func mustParse() map[string]*template.Template {
	base := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html",
		"templates/partials/*.html",
	))
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t := template.Must(base.Clone())
		out[name] = template.Must(t.ParseFS(templateFS, "templates/pages/"+name+".html"))
	}
	return out
}

// Static returns the stylesheet and script served under /public/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func page(name string, data any) templ.Component {
	return templ.FromGoHTML(pages[name].Lookup("layout"), data)
}

func fragment(pageName, name string, data any) templ.Component {
	return templ.FromGoHTML(pages[pageName].Lookup(name), data)
}

func Home(d HomeData) templ.Component { return page("home", d) }

func Blogs(d BlogsData) templ.Component { return page("blogs", d) }

// FeedFragment renders the posts of one feed page plus the sentinel that
// loads the next one.
func FeedFragment(f FeedPage) templ.Component { return fragment("blogs", "feed-page", f) }

func Post(d PostData) templ.Component { return page("post", d) }

func Profile(d ProfileData) templ.Component { return page("profile", d) }

func Auth(d AuthData) templ.Component { return page("auth", d) }

func AuthFailure(p Page) templ.Component { return page("auth-failure", p) }

func Account(d AccountData) templ.Component { return page("account", d) }

func Editor(d EditorData) templ.Component { return page("editor", d) }

// EditorForm is the form alone, swapped in after an HTMX submit.
func EditorForm(d EditorData) templ.Component { return fragment("editor", "editor-form", d) }

// Preview renders the live markdown preview pane.
func Preview(html template.HTML) templ.Component { return fragment("editor", "preview", html) }

func Manage(d ManageData) templ.Component { return page("manage", d) }

func ManageList(d ManageData) templ.Component { return fragment("manage", "manage-list", d) }

// Stats renders the view analytics of a single post.
func Stats(d StatsData) templ.Component { return page("stats", d) }

func Assets(d AssetsData) templ.Component { return page("assets", d) }

func AssetPanel(d AssetsData) templ.Component { return fragment("assets", "asset-panel", d) }

// LoginRequired tells an anonymous visitor to sign in first.
func LoginRequired(d LoginRequiredData) templ.Component { return page("login-required", d) }

func NotFound(p Page) templ.Component {
	return page("error", ErrorData{Page: p, Code: 404, Message: "The page you are looking for does not exist."})
}

func ServerError(p Page) templ.Component {
	return page("error", ErrorData{Page: p, Code: 500, Message: "Something went wrong on our side. Please try again."})
}
