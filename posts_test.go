package codegrabber

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/backend/backendtest"
	"github.com/codegrabber/codegrabber/logger"
)

func newPostStore(t *testing.T, ttl time.Duration) (*PostStore, *backendtest.Fake) {
	t.Helper()
	fake := backendtest.New()
	v := validator.New(validator.WithRequiredStructEnabled())
	return NewPostStore(fake, "blogposts", NewPostCache(ttl), logger.Discard(), v), fake
}

func postInput(slug string) PostInput {
	return PostInput{
		Title:       "Context cancellation",
		Description: "Stopping goroutines",
		Content:     "Use `ctx.Done()`.",
		Slug:        slug,
		Tags:        "go, concurrency, go",
	}
}

var author = &backend.User{ID: "u1", Username: "gopher"}

func TestPostStoreCreate(t *testing.T) {
	s, fake := newPostStore(t, 0)

	p, err := s.Create(context.Background(), author, postInput("  Context Cancellation! "))
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "context-cancellation", p.Slug)
	assert.Equal(t, []string{"go", "concurrency"}, p.Tags)
	assert.Equal(t, "u1", p.AuthorID)
	assert.Equal(t, 1, fake.TotalCalls())
}

func TestPostStoreCreateDuplicateSlug(t *testing.T) {
	s, _ := newPostStore(t, 0)
	_, err := s.Create(context.Background(), author, postInput("dup"))
	require.NoError(t, err)

	_, err = s.Create(context.Background(), author, postInput("dup"))
	var fe *FormError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "A post with this slug already exists.", fe.Message)
}

func TestPostStoreCreateRejectsBeforeBackend(t *testing.T) {
	tests := []struct {
		name string
		user *backend.User
		in   PostInput
		want string
	}{
		{"missing title", author, PostInput{Description: "d", Content: "c", Slug: "s"}, msgRequiredFields},
		{"blank content", author, PostInput{Title: "t", Description: "d", Content: " \n ", Slug: "s"}, msgRequiredFields},
		{"missing field wins over login", nil, PostInput{Title: "t", Content: "c", Slug: "s"}, msgRequiredFields},
		{"logged out", nil, postInput("s"), "You must be logged in to create a post."},
		{"bad cover", author, PostInput{Title: "t", Description: "d", Content: "c", Slug: "s", CoverImage: "not a url"}, "Cover image must be a valid URL."},
		{"symbol slug", author, postInput("!!!"), "Slug must contain letters or numbers."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fake := newPostStore(t, 0)
			_, err := s.Create(context.Background(), tt.user, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.want, UserMessage(err))
			assert.Equal(t, 0, fake.TotalCalls())
		})
	}
}

func TestPostStoreLoggedOutIsNotLoggedIn(t *testing.T) {
	s, _ := newPostStore(t, 0)
	_, err := s.Create(context.Background(), nil, postInput("s"))
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestPostStoreUpdateOwnership(t *testing.T) {
	s, fake := newPostStore(t, 0)
	fake.Seed("blogposts", "p1", backend.BlogPost{Title: "Old", Slug: "old", AuthorID: "u1"}.Data())

	_, err := s.Update(context.Background(), &backend.User{ID: "u2"}, "p1", postInput("new"))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 0, fake.Calls("UpdateDocument"))

	p, err := s.Update(context.Background(), author, "p1", postInput("new"))
	require.NoError(t, err)
	assert.Equal(t, "new", p.Slug)
	assert.Equal(t, "Context cancellation", p.Title)

	_, err = s.Update(context.Background(), author, "", postInput("new"))
	assert.Equal(t, "No post ID found for editing.", UserMessage(err))

	_, err = s.Update(context.Background(), author, "missing", postInput("new"))
	assert.True(t, backend.IsNotFound(err))
}

func TestPostStoreDelete(t *testing.T) {
	s, fake := newPostStore(t, 0)
	fake.Seed("blogposts", "p1", backend.BlogPost{Slug: "a", AuthorID: "u1"}.Data())

	assert.ErrorIs(t, s.Delete(context.Background(), nil, "p1"), ErrNotLoggedIn)
	assert.ErrorIs(t, s.Delete(context.Background(), &backend.User{ID: "u2"}, "p1"), ErrForbidden)
	assert.True(t, fake.HasDocument("blogposts", "p1"))

	require.NoError(t, s.Delete(context.Background(), author, "p1"))
	assert.False(t, fake.HasDocument("blogposts", "p1"))
}

func TestPostStoreBySlug(t *testing.T) {
	s, fake := newPostStore(t, 0)
	fake.Seed("blogposts", "p1", backend.BlogPost{Title: "Hello", Slug: "hello"}.Data())

	p, err := s.BySlug(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = s.BySlug(context.Background(), "nope")
	assert.True(t, errors.Is(err, backend.ErrNotFound))
}

func TestPostStoreCacheInvalidatedOnWrite(t *testing.T) {
	s, fake := newPostStore(t, time.Minute)
	ctx := context.Background()

	_, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	_, err = s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("ListDocuments"))

	_, err = s.Create(ctx, author, postInput("fresh"))
	require.NoError(t, err)

	recent, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls("ListDocuments"))
	require.Len(t, recent, 1)
	assert.Equal(t, "fresh", recent[0].Slug)
}

func TestPostStoreSearchBypassesCache(t *testing.T) {
	s, fake := newPostStore(t, time.Minute)
	ctx := context.Background()

	for range 2 {
		_, err := s.Feed(ctx, FeedQuery{Query: "go"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fake.Calls("ListDocuments"))

	for range 2 {
		_, err := s.Feed(ctx, FeedQuery{Tag: "go"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fake.Calls("ListDocuments"))
}

func TestPostStoreByAuthor(t *testing.T) {
	s, fake := newPostStore(t, 0)
	fake.Seed("blogposts", "p1", backend.BlogPost{Slug: "a", AuthorID: "u1"}.Data())
	fake.Seed("blogposts", "p2", backend.BlogPost{Slug: "b", AuthorID: "u2"}.Data())
	fake.Seed("blogposts", "p3", backend.BlogPost{Slug: "c", AuthorID: "u1"}.Data())

	posts, err := s.ByAuthor(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p3", posts[0].ID)
	assert.Equal(t, "p1", posts[1].ID)
}
