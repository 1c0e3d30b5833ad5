package codegrabber

import (
	"github.com/labstack/echo/v4"

	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/views"
)

func (a *App) handleAssets(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "manage your assets")
	}
	return Render(c, views.Assets(a.assetsData(c, user, "", "")))
}

func (a *App) handleAssetUpload(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "upload assets")
	}
	msg, errMsg := a.uploadAsset(c, user)
	return a.renderAssetPanel(c, a.assetsData(c, user, msg, errMsg))
}

func (a *App) uploadAsset(c echo.Context, user *backend.User) (msg, errMsg string) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", "Please select a file to upload."
	}
	if fh.Size > maxUploadSize {
		return "", "File too large (max 10MB)."
	}
	src, err := fh.Open()
	if err != nil {
		return "", "Could not read the uploaded file."
	}
	defer src.Close()

	_, err = a.Assets.Upload(c.Request().Context(), user, backend.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        src,
	})
	if err != nil {
		return "", UserMessage(err)
	}
	return "File uploaded successfully!", ""
}

func (a *App) handleAssetDelete(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return a.renderLoginRequired(c, "manage your assets")
	}
	var msg, errMsg string
	if err := a.Assets.Delete(c.Request().Context(), user, c.Param("id")); err != nil {
		errMsg = UserMessage(err)
	} else {
		msg = "Asset deleted."
	}
	return a.renderAssetPanel(c, a.assetsData(c, user, msg, errMsg))
}

func (a *App) renderAssetPanel(c echo.Context, d views.AssetsData) error {
	if isHTMX(c) {
		return Render(c, views.AssetPanel(d))
	}
	return Render(c, views.Assets(d))
}

func (a *App) assetsData(c echo.Context, user *backend.User, msg, errMsg string) views.AssetsData {
	ctx := c.Request().Context()
	d := views.AssetsData{
		Page:    a.page(c, views.PageMeta{Title: "Asset Manager"}),
		Message: msg,
		Error:   errMsg,
	}
	assets, err := a.Assets.List(ctx, user)
	if err != nil {
		if d.Error == "" {
			d.Error = UserMessage(err)
		}
		return d
	}
	d.Assets = make([]views.AssetItem, 0, len(assets))
	for _, as := range assets {
		u, err := a.Assets.URL(ctx, as.ID)
		if err != nil {
			a.Log.Warn("asset url", "id", as.ID, "error", err)
			continue
		}
		d.Assets = append(d.Assets, views.AssetItem{Asset: as, URL: u, Snippet: MarkdownSnippet(as, u)})
	}
	return d
}
