package codegrabber

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegrabber/codegrabber/backend"
)

func postsWithIDs(ids ...string) []backend.BlogPost {
	posts := make([]backend.BlogPost, len(ids))
	for i, id := range ids {
		posts[i] = backend.BlogPost{ID: id}
	}
	return posts
}

func fullPage(from int) []backend.BlogPost {
	ids := make([]string, feedPageSize)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", from+i)
	}
	return postsWithIDs(ids...)
}

func TestParseFeedQuery(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/blogs/?page=2&q=+chan+&tag=go&seen=a,,b,%20c", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	q := parseFeedQuery(c)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, "chan", q.Query)
	assert.Equal(t, "go", q.Tag)
	assert.Equal(t, []string{"a", "b", "c"}, q.Seen)

	req = httptest.NewRequest(http.MethodGet, "/blogs/?page=-3", nil)
	assert.Equal(t, 0, parseFeedQuery(e.NewContext(req, httptest.NewRecorder())).Page)
}

func TestFeedQueryQueries(t *testing.T) {
	q := FeedQuery{Page: 2, Query: "chan", Tag: "go"}
	var got []string
	for _, qq := range q.queries() {
		got = append(got, qq.String())
	}
	assert.Equal(t, []string{
		backend.Search("title", "chan").String(),
		backend.Contains("tags", "go").String(),
		backend.OrderDesc(backend.AttrCreatedAt).String(),
		backend.Limit(10).String(),
		backend.Offset(20).String(),
	}, got)

	assert.Len(t, FeedQuery{}.queries(), 3)
}

func TestBuildFeedResultSkipsSeen(t *testing.T) {
	raw := fullPage(0)
	res := buildFeedResult(FeedQuery{Page: 1, Seen: []string{"p0", "p1", "zz"}}, raw)

	require.Len(t, res.Posts, feedPageSize-2)
	assert.Equal(t, "p2", res.Posts[0].ID)
	assert.True(t, res.HasMore)

	next, err := url.Parse(res.NextURL)
	require.NoError(t, err)
	assert.Equal(t, "/blogs/", next.Path)
	assert.Equal(t, "2", next.Query().Get("page"))
	// seen carries the raw page, not the filtered one
	assert.Equal(t, "p0,p1,p2,p3,p4,p5,p6,p7,p8,p9", next.Query().Get("seen"))
}

func TestBuildFeedResultDuplicatesWithinPage(t *testing.T) {
	res := buildFeedResult(FeedQuery{}, postsWithIDs("a", "b", "a"))
	assert.Len(t, res.Posts, 2)
	assert.False(t, res.HasMore)
	assert.Empty(t, res.NextURL)
}

func TestNextURLKeepsFilters(t *testing.T) {
	res := buildFeedResult(FeedQuery{Query: "go & rust", Tag: "c++"}, fullPage(0))
	next, err := url.Parse(res.NextURL)
	require.NoError(t, err)
	assert.Equal(t, "go & rust", next.Query().Get("q"))
	assert.Equal(t, "c++", next.Query().Get("tag"))
	assert.Equal(t, "1", next.Query().Get("page"))
}

func TestFeedQueryCacheKey(t *testing.T) {
	assert.Equal(t, "feed:0:", FeedQuery{}.cacheKey())
	assert.Equal(t, "feed:3:go", FeedQuery{Page: 3, Tag: "go", Seen: []string{"x"}}.cacheKey())
}
