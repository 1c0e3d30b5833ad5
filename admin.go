package codegrabber

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/codegrabber/codegrabber/analytics"
	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/markdown"
	"github.com/codegrabber/codegrabber/views"
)

// renderLoginRequired answers owner-only routes for anonymous visitors.
func (a *App) renderLoginRequired(c echo.Context, action string) error {
	return Render(c, views.LoginRequired(views.LoginRequiredData{
		Page:   a.page(c, views.PageMeta{Title: "Please log in"}),
		Action: action,
	}))
}

func (a *App) handleAccount(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "access your account")
	}
	d := views.AccountData{}
	if full, err := a.Auth.AccountProfile(c.Request().Context(), user); err != nil {
		c.Logger().Warnf("account: %v", err)
	} else {
		c.Set(userKey, &full)
	}
	d.Page = a.page(c, views.PageMeta{Title: "Account"})
	return Render(c, views.Account(d))
}

func (a *App) handleProfileUpdate(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "update your profile")
	}
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	d := views.AccountData{}
	updated, err := a.Auth.UpdateUser(c.Request().Context(), user, in)
	if err != nil {
		d.Error = UserMessage(err)
	} else {
		if err := saveSession(c, "", updated); err != nil {
			// The backend already holds the new profile.
			c.Logger().Warnf("profile update: save session: %v", err)
		}
		d.Message = "Profile updated successfully!"
	}
	d.Page = a.page(c, views.PageMeta{Title: "Account"})
	return Render(c, views.Account(d))
}

func formFromPost(p backend.BlogPost) views.PostForm {
	return views.PostForm{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		Tags:        JoinTags(p.Tags),
		CoverImage:  p.CoverImage,
		Slug:        p.Slug,
	}
}

func (a *App) handleEditor(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "create a post")
	}
	d := views.EditorData{Page: a.page(c, views.PageMeta{Title: "Create Blog Post"})}
	if slug := c.QueryParam("edit"); slug != "" {
		post, err := a.Posts.BySlug(c.Request().Context(), slug)
		switch {
		case backend.IsNotFound(err):
			d.Error = "No blog post found with this slug."
		case err != nil:
			d.Error = UserMessage(err)
		case post.AuthorID != user.ID:
			d.Error = "You can only edit your own posts."
		default:
			d.Form = formFromPost(post)
			d.Preview = markdown.HTML(post.Content, d.Dark())
			d.Meta.Title = "Edit Blog Post"
		}
	}
	return Render(c, views.Editor(d))
}

// handleEditorSave creates a post when no post_id is sent and updates it
// otherwise. The form re-renders with the outcome; after a create it
// carries the new id and switches to edit mode.
func (a *App) handleEditorSave(c echo.Context) error {
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	id := c.FormValue("post_id")
	ctx := c.Request().Context()
	user := CurrentUser(c)

	d := views.EditorData{Form: views.PostForm{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Tags:        in.Tags,
		CoverImage:  in.CoverImage,
		Slug:        in.Slug,
	}}

	var (
		post backend.BlogPost
		err  error
	)
	if id == "" {
		post, err = a.Posts.Create(ctx, user, in)
	} else {
		post, err = a.Posts.Update(ctx, user, id, in)
	}
	switch {
	case err != nil:
		if !errors.As(err, new(*FormError)) {
			c.Logger().Errorf("save post: %v", err)
		}
		d.Error = UserMessage(err)
	case id == "":
		d.Form = formFromPost(post)
		d.Message = "Blog post created successfully!"
	default:
		d.Form = formFromPost(post)
		d.Message = "Blog post updated successfully!"
	}

	d.Page = a.page(c, views.PageMeta{Title: "Create Blog Post"})
	d.Preview = markdown.HTML(d.Form.Content, d.Dark())
	if isHTMX(c) {
		return Render(c, views.EditorForm(d))
	}
	return Render(c, views.Editor(d))
}

func (a *App) handlePreview(c echo.Context) error {
	dark := a.Theme.Load(c) == ThemeDark
	return Render(c, views.Preview(markdown.HTML(c.FormValue("content"), dark)))
}

func (a *App) handleManage(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "manage your blogs")
	}
	d := a.manageData(c, user)
	return Render(c, views.Manage(d))
}

func (a *App) handleManageDelete(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "manage your blogs")
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	var msg, errMsg string
	if err := a.Posts.Delete(ctx, user, id); err != nil {
		errMsg = UserMessage(err)
	} else {
		msg = "Blog post deleted."
		if a.tracker != nil {
			if err := a.tracker.Store().DeletePostViews(ctx, id); err != nil {
				a.Log.Warn("delete post views", "post", id, "error", err)
			}
		}
	}
	d := a.manageData(c, user)
	d.Message, d.Error = msg, errMsg
	if isHTMX(c) {
		return Render(c, views.ManageList(d))
	}
	return Render(c, views.Manage(d))
}

func (a *App) manageData(c echo.Context, user *backend.User) views.ManageData {
	ctx := c.Request().Context()
	d := views.ManageData{Page: a.page(c, views.PageMeta{Title: "Manage Blogs"})}
	posts, err := a.Posts.ByAuthor(ctx, user.ID)
	if err != nil {
		d.Error = UserMessage(err)
		return d
	}
	counts := map[string]int{}
	if a.tracker != nil && len(posts) > 0 {
		ids := make([]string, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}
		if counts, err = a.tracker.Store().ViewCounts(ctx, ids); err != nil {
			a.Log.Warn("view counts", "error", err)
			counts = map[string]int{}
		}
	}
	d.Posts = make([]views.ManagedPost, len(posts))
	for i, p := range posts {
		d.Posts[i] = views.ManagedPost{BlogPost: p, Views: counts[p.ID]}
	}
	return d
}

// statsPeriod maps the period query parameter to a number of days.
func statsPeriod(period string) (string, int) {
	switch period {
	case "week":
		return period, 7
	case "quarter":
		return period, 90
	default:
		return "month", 30
	}
}

func (a *App) handleManageStats(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "see your post analytics")
	}
	ctx := c.Request().Context()
	post, err := a.Posts.ByID(ctx, c.Param("id"))
	if err != nil {
		if backend.IsNotFound(err) {
			return a.renderNotFound(c)
		}
		return err
	}
	if post.AuthorID != user.ID {
		return a.renderNotFound(c)
	}

	period, days := statsPeriod(c.QueryParam("period"))
	d := views.StatsData{
		Page:   a.page(c, views.PageMeta{Title: "Views: " + post.Title}),
		Post:   post,
		Period: period,
	}
	if a.tracker != nil {
		stats, err := a.tracker.Store().PostStats(ctx, post.ID, days, time.Now())
		if err != nil {
			c.Logger().Errorf("post stats: %v", err)
			d.Error = "Could not load analytics."
		} else {
			d.Stats = stats
			d.Bars = dailyBars(stats.Daily)
		}
	}
	return Render(c, views.Stats(d))
}

func dailyBars(days []analytics.DailyView) []views.DailyBar {
	peak := 0
	for _, d := range days {
		peak = max(peak, d.Views)
	}
	bars := make([]views.DailyBar, len(days))
	for i, d := range days {
		pct := 0
		if peak > 0 {
			pct = d.Views * 100 / peak
		}
		bars[i] = views.DailyBar{Date: d.Date, Views: d.Views, Percent: pct}
	}
	return bars
}
