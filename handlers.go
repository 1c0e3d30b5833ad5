package codegrabber

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/codegrabber/codegrabber/analytics"
	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/markdown"
	"github.com/codegrabber/codegrabber/views"
)

const recentPostCount = 3

func (a *App) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
	}
}

// page assembles the chrome shared by every full page. Empty meta fields
// fall back to the site defaults; the layout appends the site name to the
// title.
func (a *App) page(c echo.Context, meta views.PageMeta) views.Page {
	path := c.Request().URL.Path
	if meta.Description == "" {
		meta.Description = a.Config.Description
	}
	if meta.URL == "" {
		meta.URL = strings.TrimRight(a.Config.URL, "/") + path
	}
	if meta.OGType == "" {
		meta.OGType = "website"
	}
	if meta.JSONLD == "" {
		meta.JSONLD = views.WebsiteJSONLD(a.site())
	}
	return views.Page{
		Site:   a.site(),
		Meta:   meta,
		User:   CurrentUser(c),
		Theme:  a.Theme.Load(c),
		CSRF:   CsrfToken(c),
		Path:   path,
		Search: c.QueryParam("q"),
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	recent, err := a.Posts.Recent(ctx, recentPostCount)
	if err != nil {
		c.Logger().Errorf("home: %v", err)
	}
	return Render(c, views.Home(views.HomeData{
		Page:   a.page(c, views.PageMeta{}),
		Recent: recent,
	}))
}

func (a *App) handleBlogs(c echo.Context) error {
	q := parseFeedQuery(c)
	res, err := a.Posts.Feed(c.Request().Context(), q)
	feed := views.FeedPage{Posts: res.Posts, NextURL: res.NextURL}
	switch {
	case err != nil:
		c.Logger().Errorf("blogs page %d: %v", q.Page, err)
		feed.Empty = "Could not load blogs: " + UserMessage(err)
	case len(res.Posts) == 0 && q.Page == 0:
		feed.Empty = "No blogs found."
	}

	if isHTMX(c) && q.Page > 0 {
		return Render(c, views.FeedFragment(feed))
	}

	title := "Blogs"
	if q.Tag != "" {
		title = "Posts tagged " + q.Tag
	}
	if q.Query != "" {
		title = "Search: " + q.Query
	}
	return Render(c, views.Blogs(views.BlogsData{
		Page: a.page(c, views.PageMeta{Title: title}),
		Feed: feed,
		Tag:  q.Tag,
	}))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Posts.BySlug(ctx, c.Param("slug"))
	if err != nil {
		if backend.IsNotFound(err) {
			return a.renderNotFound(c)
		}
		return err
	}

	var author *backend.User
	if post.AuthorID != "" {
		if u, err := a.Auth.Profile(ctx, post.AuthorID); err == nil {
			author = &u
			if post.AuthorName == "" {
				post.AuthorName = u.Username
			}
		}
	}

	a.recordView(c, post)

	postURL := views.PostURL(a.site(), post.Slug)
	p := a.page(c, views.PageMeta{
		Title:       post.Title,
		Description: post.Description,
		URL:         postURL,
		OGType:      "article",
		Image:       post.CoverImage,
		JSONLD:      views.BlogPostingJSONLD(a.site(), post),
	})
	return Render(c, views.Post(views.PostData{
		Page:    p,
		Post:    post,
		Content: markdown.HTML(post.Content, p.Dark()),
		Author:  author,
		Share:   views.ShareLinks(postURL, post.Title),
	}))
}

// recordView stores the hit off the request path.
func (a *App) recordView(c echo.Context, post backend.BlogPost) {
	if a.tracker == nil {
		return
	}
	req := c.Request()
	a.tracker.RecordAsync(analytics.Hit{
		PostID:    post.ID,
		Slug:      post.Slug,
		IP:        c.RealIP(),
		UserAgent: req.UserAgent(),
		Referrer:  req.Referer(),
		DNT:       req.Header.Get("DNT") == "1" || req.Header.Get("Sec-GPC") == "1",
	})
}

func (a *App) handleProfile(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("userId")
	profile, err := a.Auth.Profile(ctx, userID)
	if err != nil {
		if backend.IsNotFound(err) {
			return a.renderNotFound(c)
		}
		return err
	}
	posts, err := a.Posts.ByAuthor(ctx, userID)
	if err != nil {
		c.Logger().Errorf("profile posts: %v", err)
	}
	return Render(c, views.Profile(views.ProfileData{
		Page:    a.page(c, views.PageMeta{Title: profile.Username, Description: profile.Bio, OGType: "profile"}),
		Profile: profile,
		Posts:   posts,
	}))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Posts.Recent(c.Request().Context(), syndicationLimit)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Posts.Recent(c.Request().Context(), syndicationLimit)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nDisallow: /admin/\nDisallow: /auth/\nAllow: /\n\nSitemap: " +
		strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) renderNotFound(c echo.Context) error {
	return RenderStatus(c, http.StatusNotFound, views.NotFound(a.page(c, views.PageMeta{Title: "Not found"})))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if (ok && he.Code == http.StatusNotFound) || backend.IsNotFound(err) {
		_ = a.renderNotFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, views.ServerError(a.page(c, views.PageMeta{Title: "Error"})))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
