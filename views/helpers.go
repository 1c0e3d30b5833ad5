package views

import (
	"encoding/json"
	"html/template"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/codegrabber/codegrabber/backend"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostURL is the canonical URL of a post.
func PostURL(cfg SiteConfig, slug string) string {
	return buildURL(cfg.URL, "blogs", slug)
}

// ShareLinks returns the share targets for a post.
func ShareLinks(postURL, title string) []ShareLink {
	u := url.QueryEscape(postURL)
	text := url.QueryEscape(title)
	return []ShareLink{
		{Name: "WhatsApp", URL: "https://wa.me/?text=" + text + "%20" + u},
		{Name: "Telegram", URL: "https://t.me/share/url?url=" + u + "&text=" + text},
		{Name: "Facebook", URL: "https://www.facebook.com/sharer/sharer.php?u=" + u},
		{Name: "Twitter", URL: "https://twitter.com/intent/tweet?url=" + u + "&text=" + text},
		{Name: "LinkedIn", URL: "https://www.linkedin.com/sharing/share-offsite/?url=" + u},
	}
}

// WebsiteJSONLD produces a Schema.org WebSite block with a search action.
func WebsiteJSONLD(cfg SiteConfig) template.JS {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
		"potentialAction": map[string]string{
			"@type":       "SearchAction",
			"target":      buildURL(cfg.URL, "blogs") + "?q={search_term_string}",
			"query-input": "required name=search_term_string",
		},
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	return marshalJS(data)
}

// BlogPostingJSONLD produces a Schema.org BlogPosting block for a post.
func BlogPostingJSONLD(cfg SiteConfig, post backend.BlogPost) template.JS {
	postURL := PostURL(cfg, post.Slug)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Description,
		"datePublished": post.CreatedAt.Format(time.RFC3339),
		"dateModified":  post.UpdatedAt.Format(time.RFC3339),
		"url":           postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.AuthorName != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  post.AuthorName,
			"url":   buildURL(cfg.URL, "profile", post.AuthorID),
		}
	}
	if post.CoverImage != "" {
		data["image"] = post.CoverImage
	}
	if len(post.Tags) > 0 {
		data["keywords"] = strings.Join(post.Tags, ", ")
	}
	return marshalJS(data)
}

// marshalJS encodes v for a <script type="application/ld+json"> block.
// json.Marshal escapes <, > and & so the output cannot close the script tag.
func marshalJS(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return template.JS(b)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return strconv.FormatInt(n, 10) + " B"
	case n < unit*unit:
		return strconv.FormatFloat(float64(n)/unit, 'f', 1, 64) + " KB"
	default:
		return strconv.FormatFloat(float64(n)/(unit*unit), 'f', 1, 64) + " MB"
	}
}

// initial returns the upper-cased first letter of s for avatar placeholders.
func initial(s string) string {
	for _, r := range s {
		return strings.ToUpper(string(r))
	}
	return "?"
}

func tagURL(tag string) string {
	return "/blogs/?tag=" + url.QueryEscape(tag)
}

var funcs = template.FuncMap{
	"formatDate": formatDate,
	"isoDate":    isoDate,
	"formatSize": formatSize,
	"initial":    initial,
	"tagURL":     tagURL,
	"pathEscape": url.PathEscape,
	"joinTags": func(tags []string) string {
		return strings.Join(tags, ", ")
	},
}
