package codegrabber

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/codegrabber/codegrabber/backend"
)

const feedPageSize = 10

// FeedQuery selects one page of the blog list.
type FeedQuery struct {
	Page  int
	Query string // title search
	Tag   string
	Seen  []string // ids already rendered by the previous page
}

func parseFeedQuery(c echo.Context) FeedQuery {
	q := FeedQuery{
		Query: strings.TrimSpace(c.QueryParam("q")),
		Tag:   strings.TrimSpace(c.QueryParam("tag")),
	}
	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil && n > 0 {
		q.Page = n
	}
	for _, id := range strings.Split(c.QueryParam("seen"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			q.Seen = append(q.Seen, id)
		}
	}
	return q
}

func (q FeedQuery) cacheKey() string {
	return "feed:" + strconv.Itoa(q.Page) + ":" + q.Tag
}

func (q FeedQuery) queries() []backend.Query {
	var qs []backend.Query
	if q.Query != "" {
		qs = append(qs, backend.Search("title", q.Query))
	}
	if q.Tag != "" {
		qs = append(qs, backend.Contains("tags", q.Tag))
	}
	return append(qs,
		backend.OrderDesc(backend.AttrCreatedAt),
		backend.Limit(feedPageSize),
		backend.Offset(q.Page*feedPageSize),
	)
}

// nextURL is the sentinel target for the page after q. pageIDs are the ids
// the backend returned for q, before de-duplication.
func (q FeedQuery) nextURL(pageIDs []string) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page+1))
	if len(pageIDs) > 0 {
		v.Set("seen", strings.Join(pageIDs, ","))
	}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	return "/blogs/?" + v.Encode()
}

// FeedResult is one fetched page. Posts already exclude the ids in Seen;
// HasMore reports whether the backend returned a full page.
type FeedResult struct {
	Posts   []backend.BlogPost
	HasMore bool
	NextURL string
}

func buildFeedResult(q FeedQuery, raw []backend.BlogPost) FeedResult {
	seen := make(map[string]struct{}, len(q.Seen))
	for _, id := range q.Seen {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(raw))
	posts := make([]backend.BlogPost, 0, len(raw))
	for _, p := range raw {
		ids = append(ids, p.ID)
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		posts = append(posts, p)
	}
	res := FeedResult{Posts: posts, HasMore: len(raw) == feedPageSize}
	if res.HasMore {
		res.NextURL = q.nextURL(ids)
	}
	return res
}
