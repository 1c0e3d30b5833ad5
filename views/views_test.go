package views

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/codegrabber/codegrabber/analytics"
	"github.com/codegrabber/codegrabber/backend"
)

var testSite = SiteConfig{Name: "Code Grabber", URL: "https://codegrabber.dev", Description: "Dev blogs"}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func testPage(theme string) Page {
	return Page{Site: testSite, Meta: PageMeta{Title: "Blogs"}, Theme: theme, CSRF: "tok", Path: "/blogs/"}
}

func TestLayoutTheme(t *testing.T) {
	light := render(t, Home(HomeData{Page: testPage("light")}))
	if !strings.Contains(light, `data-theme="light"`) {
		t.Error("light page missing light theme attribute")
	}
	dark := render(t, Home(HomeData{Page: testPage("dark")}))
	if !strings.Contains(dark, `data-theme="dark"`) {
		t.Error("dark page missing dark theme attribute")
	}
	if !strings.Contains(dark, "Blogs | Code Grabber") {
		t.Error("title should carry the site name")
	}
}

func TestFeedFragmentSentinel(t *testing.T) {
	posts := []backend.BlogPost{{ID: "p1", Title: "One", Slug: "one", Tags: []string{"go"}}}

	out := render(t, FeedFragment(FeedPage{Posts: posts, NextURL: "/blogs/?page=1&seen=p1"}))
	if strings.Contains(out, "<html") {
		t.Error("fragment rendered the layout")
	}
	if !strings.Contains(out, `hx-get="/blogs/?page=1&amp;seen=p1"`) {
		t.Errorf("missing sentinel: %s", out)
	}
	if !strings.Contains(out, `href="/blogs/?tag=go"`) {
		t.Error("missing tag link")
	}

	last := render(t, FeedFragment(FeedPage{Posts: posts}))
	if strings.Contains(last, "feed-sentinel") {
		t.Error("last page should not carry a sentinel")
	}
	empty := render(t, FeedFragment(FeedPage{Empty: "No blogs found."}))
	if !strings.Contains(empty, "No blogs found.") {
		t.Error("empty message not rendered")
	}
}

func TestEditorModes(t *testing.T) {
	create := render(t, Editor(EditorData{Page: testPage("light")}))
	if strings.Contains(create, `name="post_id"`) || !strings.Contains(create, "Create Blog Post") {
		t.Error("create mode should not carry a post id")
	}
	edit := render(t, EditorForm(EditorData{Page: testPage("light"), Form: PostForm{ID: "p1", Slug: "hello"}}))
	if !strings.Contains(edit, `name="post_id" value="p1"`) || !strings.Contains(edit, "Edit Blog Post") {
		t.Errorf("edit mode missing post id: %s", edit)
	}
}

func TestStatsPage(t *testing.T) {
	d := StatsData{
		Page:   testPage("light"),
		Post:   backend.BlogPost{ID: "p1", Title: "Channels"},
		Period: "week",
		Stats: &analytics.PostStats{
			Views:          12,
			UniqueVisitors: 7,
			TopReferrers:   []analytics.DimensionStat{{Name: "news.ycombinator.com", Count: 5}},
		},
		Bars: []DailyBar{{Date: "2025-01-01", Views: 12, Percent: 100}},
	}
	out := render(t, Stats(d))
	for _, want := range []string{"Views: Channels", "<strong>12</strong>", "news.ycombinator.com", "height: 100%"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats page missing %q", want)
		}
	}

	disabled := render(t, Stats(StatsData{Page: testPage("light"), Period: "month"}))
	if !strings.Contains(disabled, "Analytics are disabled") {
		t.Error("nil stats should say analytics are disabled")
	}
}

func TestPostURLAndShareLinks(t *testing.T) {
	u := PostURL(testSite, "hello-world")
	if u != "https://codegrabber.dev/blogs/hello-world/" {
		t.Errorf("PostURL = %q", u)
	}
	links := ShareLinks(u, "Hello & welcome")
	if len(links) != 5 {
		t.Fatalf("got %d share links", len(links))
	}
	if !strings.Contains(links[1].URL, "text=Hello+%26+welcome") {
		t.Errorf("telegram link not escaped: %s", links[1].URL)
	}
}

func TestBlogPostingJSONLD(t *testing.T) {
	post := backend.BlogPost{
		Title:      "Channels",
		Slug:       "channels",
		AuthorID:   "u1",
		AuthorName: "gopher",
		Tags:       []string{"go", "concurrency"},
		CreatedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(BlogPostingJSONLD(testSite, post)), &got); err != nil {
		t.Fatal(err)
	}
	if got["keywords"] != "go, concurrency" {
		t.Errorf("keywords = %v", got["keywords"])
	}
	author, _ := got["author"].(map[string]any)
	if author["url"] != "https://codegrabber.dev/profile/u1/" {
		t.Errorf("author url = %v", author["url"])
	}
	if got["datePublished"] != "2025-01-02T03:04:05Z" {
		t.Errorf("datePublished = %v", got["datePublished"])
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KB",
		5 << 20: "5.0 MB",
	}
	for n, want := range tests {
		if got := formatSize(n); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", n, got, want)
		}
	}
}
