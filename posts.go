package codegrabber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/logger"
)

// PostInput is the create/edit form.
type PostInput struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
	Content     string `form:"content" validate:"required"`
	Slug        string `form:"slug" validate:"required"`
	Tags        string `form:"tags"`
	CoverImage  string `form:"cover_image" validate:"omitempty,url"`
}

var postMessages = map[string]string{
	"required":       msgRequiredFields,
	"CoverImage.url": "Cover image must be a valid URL.",
}

func (in *PostInput) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Slug = strings.TrimSpace(in.Slug)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	if strings.TrimSpace(in.Content) == "" {
		in.Content = ""
	}
}

// PostStore reads and writes the blogposts collection.
type PostStore struct {
	db       backend.Databases
	posts    string
	cache    *PostCache
	log      *logger.Logger
	validate *validator.Validate
}

// NewPostStore creates a PostStore. cache may be nil.
func NewPostStore(db backend.Databases, postsCollection string, cache *PostCache, log *logger.Logger, v *validator.Validate) *PostStore {
	return &PostStore{db: db, posts: postsCollection, cache: cache, log: log, validate: v}
}

// check validates in and normalises its slug. Required fields are checked
// before the login state; nothing here talks to the backend.
func (s *PostStore) check(user *backend.User, in *PostInput, action string) error {
	in.trim()
	if err := s.validate.Struct(in); err != nil {
		return formError(err, postMessages, msgRequiredFields)
	}
	if user == nil {
		return &FormError{Message: "You must be logged in to " + action + " a post.", Err: ErrNotLoggedIn}
	}
	in.Slug = Slugify(in.Slug)
	if in.Slug == "" {
		return &FormError{Message: "Slug must contain letters or numbers."}
	}
	return nil
}

func (in PostInput) post(authorID string) backend.BlogPost {
	return backend.BlogPost{
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Tags:        NormalizeTags(in.Tags),
		CoverImage:  in.CoverImage,
		Slug:        in.Slug,
		AuthorID:    authorID,
	}
}

// Create stores a new post authored by user with a single create call.
func (s *PostStore) Create(ctx context.Context, user *backend.User, in PostInput) (backend.BlogPost, error) {
	if err := s.check(user, &in, "create"); err != nil {
		return backend.BlogPost{}, err
	}
	p := in.post(user.ID)
	doc, err := s.db.CreateDocument(ctx, s.posts, backend.UniqueID(), p.Data(), backend.OwnerPermissions(user.ID))
	if err != nil {
		s.log.Error("create post", "slug", p.Slug, "user", user.ID, "error", err)
		return backend.BlogPost{}, conflictAsFormError(fmt.Errorf("create post: %w", err))
	}
	s.cache.Invalidate()
	return backend.PostFromDocument(doc), nil
}

// Update overwrites post id after checking that user wrote it.
func (s *PostStore) Update(ctx context.Context, user *backend.User, id string, in PostInput) (backend.BlogPost, error) {
	if err := s.check(user, &in, "edit"); err != nil {
		return backend.BlogPost{}, err
	}
	if id == "" {
		return backend.BlogPost{}, &FormError{Message: "No post ID found for editing."}
	}
	if _, err := s.owned(ctx, user, id); err != nil {
		return backend.BlogPost{}, err
	}
	p := in.post(user.ID)
	doc, err := s.db.UpdateDocument(ctx, s.posts, id, p.Data(), nil)
	if err != nil {
		s.log.Error("update post", "id", id, "user", user.ID, "error", err)
		return backend.BlogPost{}, conflictAsFormError(fmt.Errorf("update post %s: %w", id, err))
	}
	s.cache.Invalidate()
	return backend.PostFromDocument(doc), nil
}

// Delete removes post id after checking that user wrote it.
func (s *PostStore) Delete(ctx context.Context, user *backend.User, id string) error {
	if user == nil {
		return ErrNotLoggedIn
	}
	if _, err := s.owned(ctx, user, id); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(ctx, s.posts, id); err != nil {
		s.log.Error("delete post", "id", id, "user", user.ID, "error", err)
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	s.cache.Invalidate()
	return nil
}

func (s *PostStore) owned(ctx context.Context, user *backend.User, id string) (backend.BlogPost, error) {
	doc, err := s.db.GetDocument(ctx, s.posts, id)
	if err != nil {
		if !backend.IsNotFound(err) {
			s.log.Error("load post", "id", id, "error", err)
		}
		return backend.BlogPost{}, fmt.Errorf("load post %s: %w", id, err)
	}
	p := backend.PostFromDocument(doc)
	if p.AuthorID != user.ID {
		s.log.Warn("post ownership mismatch", "id", id, "owner", p.AuthorID, "user", user.ID)
		return backend.BlogPost{}, ErrForbidden
	}
	return p, nil
}

// ByID returns post id.
func (s *PostStore) ByID(ctx context.Context, id string) (backend.BlogPost, error) {
	doc, err := s.db.GetDocument(ctx, s.posts, id)
	if err != nil {
		return backend.BlogPost{}, fmt.Errorf("post %s: %w", id, err)
	}
	return backend.PostFromDocument(doc), nil
}

// BySlug returns the post with slug, or an error matching backend.ErrNotFound.
func (s *PostStore) BySlug(ctx context.Context, slug string) (backend.BlogPost, error) {
	posts, err := s.cache.load("slug:"+slug, func() ([]backend.BlogPost, error) {
		return s.list(ctx, backend.Equal("slug", slug), backend.Limit(1))
	})
	if err != nil {
		return backend.BlogPost{}, fmt.Errorf("post %q: %w", slug, err)
	}
	if len(posts) == 0 {
		return backend.BlogPost{}, fmt.Errorf("post %q: %w", slug, backend.ErrNotFound)
	}
	return posts[0], nil
}

// Feed returns one page of the blog list, newest first.
func (s *PostStore) Feed(ctx context.Context, q FeedQuery) (FeedResult, error) {
	fetch := func() ([]backend.BlogPost, error) {
		return s.list(ctx, q.queries()...)
	}
	var (
		raw []backend.BlogPost
		err error
	)
	if q.Query == "" {
		raw, err = s.cache.load(q.cacheKey(), fetch)
	} else {
		raw, err = fetch()
	}
	if err != nil {
		return FeedResult{}, fmt.Errorf("feed page %d: %w", q.Page, err)
	}
	return buildFeedResult(q, raw), nil
}

// Recent returns the n newest posts.
func (s *PostStore) Recent(ctx context.Context, n int) ([]backend.BlogPost, error) {
	posts, err := s.cache.load(fmt.Sprintf("recent:%d", n), func() ([]backend.BlogPost, error) {
		return s.list(ctx, backend.OrderDesc(backend.AttrCreatedAt), backend.Limit(n))
	})
	if err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	return posts, nil
}

// ByAuthor returns the posts written by userID, newest first.
func (s *PostStore) ByAuthor(ctx context.Context, userID string) ([]backend.BlogPost, error) {
	posts, err := s.list(ctx,
		backend.Equal("user", userID),
		backend.OrderDesc(backend.AttrCreatedAt),
		backend.Limit(100),
	)
	if err != nil {
		return nil, fmt.Errorf("posts by %s: %w", userID, err)
	}
	return posts, nil
}

func (s *PostStore) list(ctx context.Context, queries ...backend.Query) ([]backend.BlogPost, error) {
	list, err := s.db.ListDocuments(ctx, s.posts, queries...)
	if err != nil {
		s.log.Error("list posts", "error", err)
		return nil, err
	}
	posts := make([]backend.BlogPost, 0, len(list.Documents))
	for _, d := range list.Documents {
		posts = append(posts, backend.PostFromDocument(d))
	}
	return posts, nil
}

func conflictAsFormError(err error) error {
	var be *backend.Error
	if errors.As(err, &be) && be.Code == http.StatusConflict {
		return &FormError{Message: "A post with this slug already exists.", Err: err}
	}
	return err
}
