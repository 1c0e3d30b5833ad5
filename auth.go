package codegrabber

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/codegrabber/codegrabber/views"
)

func (a *App) handleAuth(c echo.Context) error {
	if CurrentUser(c) != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	signUp := c.QueryParam("mode") == "signup"
	return a.renderAuth(c, http.StatusOK, views.AuthData{SignUp: signUp})
}

func (a *App) renderAuth(c echo.Context, code int, d views.AuthData) error {
	title := "Sign In"
	if d.SignUp {
		title = "Sign Up"
	}
	d.Page = a.page(c, views.PageMeta{Title: title})
	return RenderStatus(c, code, views.Auth(d))
}

func (a *App) handleSignIn(c echo.Context) error {
	ip := c.RealIP()
	email := c.FormValue("email")
	if !a.loginLimiter.Check(ip) {
		return a.renderAuth(c, http.StatusTooManyRequests, views.AuthData{
			Email: email,
			Error: "Too many login attempts. Try again later.",
		})
	}
	res, err := a.Auth.SignIn(c.Request().Context(), email, c.FormValue("password"))
	if err != nil {
		a.loginLimiter.Record(ip)
		return a.renderAuth(c, http.StatusOK, views.AuthData{Email: email, Error: UserMessage(err)})
	}
	if err := saveSession(c, res.Secret, res.User); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleSignUp(c echo.Context) error {
	ip := c.RealIP()
	var in SignUpInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	form := views.AuthData{SignUp: true, Email: in.Email, Username: in.Username}
	if !a.loginLimiter.Check(ip) {
		form.Error = "Too many attempts. Try again later."
		return a.renderAuth(c, http.StatusTooManyRequests, form)
	}
	res, err := a.Auth.SignUp(c.Request().Context(), in)
	if err != nil {
		a.loginLimiter.Record(ip)
		form.Error = UserMessage(err)
		return a.renderAuth(c, http.StatusOK, form)
	}
	if err := saveSession(c, res.Secret, res.User); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleLogout(c echo.Context) error {
	if CurrentUser(c) != nil {
		// The local session is dropped even when the backend call fails.
		_ = a.Auth.Logout(c.Request().Context())
	}
	if err := clearSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleOAuthStart(c echo.Context) error {
	target, err := a.Auth.OAuthURL(c.Param("provider"))
	if err != nil {
		return echo.ErrNotFound
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func (a *App) handleOAuthCallback(c echo.Context) error {
	res, err := a.Auth.CompleteOAuth(c.Request().Context(), c.QueryParam("userId"), c.QueryParam("secret"))
	if err != nil {
		c.Logger().Warnf("oauth callback: %v", err)
		return c.Redirect(http.StatusSeeOther, "/auth/failure/")
	}
	if err := saveSession(c, res.Secret, res.User); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleAuthFailure(c echo.Context) error {
	return Render(c, views.AuthFailure(a.page(c, views.PageMeta{
		Title:   "Sign in failed",
		Refresh: "5;url=/auth/",
	})))
}
