package codegrabber

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/logger"
)

// OAuth providers offered on the sign-in page.
var oauthProviders = map[string]bool{
	"github": true,
	"google": true,
}

// ErrUnknownProvider is returned for OAuth providers the site does not offer.
var ErrUnknownProvider = errors.New("codegrabber: unknown oauth provider")

// AuthSession is a signed-in user plus the secret that authenticates later
// backend calls on their behalf.
type AuthSession struct {
	Secret string
	User   backend.User
}

type signInInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required"`
}

// SignUpInput is the sign-up form.
type SignUpInput struct {
	Email          string `form:"email" validate:"required,email,max=254"`
	Password       string `form:"password" validate:"required,min=8"`
	Username       string `form:"username" validate:"required,max=128"`
	ProfilePicture string `form:"profile_picture" validate:"omitempty,url"`
	Bio            string `form:"bio" validate:"max=1000"`
}

// ProfileInput is the account settings form. Empty fields keep the
// current value.
type ProfileInput struct {
	Username       string `form:"username" validate:"max=128"`
	ProfilePicture string `form:"profile_picture" validate:"omitempty,url"`
	Bio            string `form:"bio" validate:"max=1000"`
}

var authMessages = map[string]string{
	"required":           msgRequiredFields,
	"email":              "Please enter a valid email address.",
	"Password.min":       "Password must be at least 8 characters.",
	"ProfilePicture.url": "Profile picture must be a valid URL.",
	"Username.max":       "Username is too long.",
	"Bio.max":            "Bio is too long.",
	"Email.max":          "Please enter a valid email address.",
}

// AuthStore signs users in and out and keeps their profile in sync between
// the account and the users collection.
type AuthStore struct {
	accounts  backend.Accounts
	databases backend.Databases
	users     string
	siteURL   string
	log       *logger.Logger
	validate  *validator.Validate
}

// NewAuthStore creates an AuthStore.
func NewAuthStore(be backend.Client, usersCollection, siteURL string, log *logger.Logger, v *validator.Validate) *AuthStore {
	return &AuthStore{
		accounts:  be.Accounts,
		databases: be.Databases,
		users:     usersCollection,
		siteURL:   siteURL,
		log:       log,
		validate:  v,
	}
}

// SignIn opens an email/password session and loads the user.
func (s *AuthStore) SignIn(ctx context.Context, email, password string) (AuthSession, error) {
	in := signInInput{Email: strings.TrimSpace(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return AuthSession{}, formError(err, authMessages, msgRequiredFields)
	}
	sess, err := s.accounts.CreateEmailPasswordSession(ctx, in.Email, in.Password)
	if err != nil {
		s.log.Warn("sign in failed", "email", in.Email, "error", err)
		return AuthSession{}, fmt.Errorf("sign in: %w", err)
	}
	u, err := s.FetchUser(backend.WithSession(ctx, sess.Secret))
	if err != nil {
		return AuthSession{}, err
	}
	return AuthSession{Secret: sess.Secret, User: u}, nil
}

// SignUp creates the account, signs it in, then stores the profile both as
// account prefs and as a users document.
func (s *AuthStore) SignUp(ctx context.Context, in SignUpInput) (AuthSession, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.ProfilePicture = strings.TrimSpace(in.ProfilePicture)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := s.validate.Struct(in); err != nil {
		return AuthSession{}, formError(err, authMessages, msgRequiredFields)
	}

	acc, err := s.accounts.Create(ctx, backend.UniqueID(), in.Email, in.Password, in.Username)
	if err != nil {
		s.log.Error("sign up: create account", "email", in.Email, "error", err)
		return AuthSession{}, fmt.Errorf("sign up: %w", err)
	}
	sess, err := s.accounts.CreateEmailPasswordSession(ctx, in.Email, in.Password)
	if err != nil {
		s.log.Error("sign up: create session", "user", acc.ID, "error", err)
		return AuthSession{}, fmt.Errorf("sign up: %w", err)
	}
	userCtx := backend.WithSession(ctx, sess.Secret)

	profile := backend.User{
		ID:             acc.ID,
		Username:       in.Username,
		Email:          in.Email,
		ProfilePicture: in.ProfilePicture,
		Bio:            in.Bio,
	}
	g, gctx := errgroup.WithContext(userCtx)
	g.Go(func() error {
		_, err := s.accounts.UpdatePrefs(gctx, backend.Prefs{
			backend.PrefProfilePicture: in.ProfilePicture,
			backend.PrefBio:            in.Bio,
		})
		return err
	})
	g.Go(func() error {
		_, err := s.databases.CreateDocument(gctx, s.users, acc.ID, profile.Data(), backend.OwnerPermissions(acc.ID))
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("sign up: store profile", "user", acc.ID, "error", err)
		return AuthSession{}, fmt.Errorf("sign up: %w", err)
	}

	u, err := s.FetchUser(userCtx)
	if err != nil {
		return AuthSession{}, err
	}
	return AuthSession{Secret: sess.Secret, User: u}, nil
}

// FetchUser loads the account of the session on ctx.
func (s *AuthStore) FetchUser(ctx context.Context) (backend.User, error) {
	acc, err := s.accounts.Get(ctx)
	if err != nil {
		s.log.Warn("fetch user", "error", err)
		return backend.User{}, fmt.Errorf("fetch user: %w", err)
	}
	return backend.UserFromAccount(acc), nil
}

// AccountProfile loads the full profile of the signed-in user: the account
// overlaid with its users document when one exists.
func (s *AuthStore) AccountProfile(ctx context.Context, current *backend.User) (backend.User, error) {
	if current == nil {
		return backend.User{}, ErrNotLoggedIn
	}
	u, err := s.FetchUser(ctx)
	if err != nil {
		return backend.User{}, err
	}
	if u.ID != current.ID {
		return backend.User{}, ErrForbidden
	}
	doc, err := s.databases.GetDocument(ctx, s.users, u.ID)
	switch {
	case backend.IsNotFound(err):
		return u, nil
	case err != nil:
		s.log.Error("account profile", "user", u.ID, "error", err)
		return backend.User{}, fmt.Errorf("account profile: %w", err)
	}
	p := backend.UserFromDocument(doc)
	if p.Username != "" {
		u.Username = p.Username
	}
	if p.ProfilePicture != "" {
		u.ProfilePicture = p.ProfilePicture
	}
	if p.Bio != "" {
		u.Bio = p.Bio
	}
	return u, nil
}

// UpdateUser merges in over the stored account of current and writes the
// result to the account prefs and the users document.
func (s *AuthStore) UpdateUser(ctx context.Context, current *backend.User, in ProfileInput) (backend.User, error) {
	if current == nil {
		return backend.User{}, ErrNotLoggedIn
	}
	in.Username = strings.TrimSpace(in.Username)
	in.ProfilePicture = strings.TrimSpace(in.ProfilePicture)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := s.validate.Struct(in); err != nil {
		return backend.User{}, formError(err, authMessages, "Please check the profile fields.")
	}

	merged, err := s.AccountProfile(ctx, current)
	if err != nil {
		return backend.User{}, fmt.Errorf("update user: %w", err)
	}
	if in.Username != "" {
		merged.Username = in.Username
	}
	if in.ProfilePicture != "" {
		merged.ProfilePicture = in.ProfilePicture
	}
	if in.Bio != "" {
		merged.Bio = in.Bio
	}

	if _, err := s.accounts.UpdatePrefs(ctx, backend.Prefs{
		backend.PrefProfilePicture: merged.ProfilePicture,
		backend.PrefBio:            merged.Bio,
	}); err != nil {
		s.log.Error("update user: prefs", "user", current.ID, "error", err)
		return backend.User{}, fmt.Errorf("update user: %w", err)
	}
	doc, err := s.databases.UpsertDocument(ctx, s.users, current.ID, merged.Data(), backend.OwnerPermissions(current.ID))
	if err != nil {
		s.log.Error("update user: document", "user", current.ID, "error", err)
		return backend.User{}, fmt.Errorf("update user: %w", err)
	}

	updated := backend.UserFromDocument(doc)
	if updated.Username == "" {
		updated.Username = merged.Username
	}
	if updated.Email == "" {
		updated.Email = merged.Email
	}
	if updated.ProfilePicture == "" {
		updated.ProfilePicture = merged.ProfilePicture
	}
	if updated.Bio == "" {
		updated.Bio = merged.Bio
	}
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = merged.CreatedAt
	}
	return updated, nil
}

// Logout ends the current backend session.
func (s *AuthStore) Logout(ctx context.Context) error {
	if err := s.accounts.DeleteSession(ctx, "current"); err != nil {
		s.log.Warn("logout", "error", err)
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// OAuthURL returns where to send the browser to start an OAuth2 sign in.
func (s *AuthStore) OAuthURL(provider string) (string, error) {
	if !oauthProviders[provider] {
		return "", ErrUnknownProvider
	}
	return s.accounts.OAuth2URL(provider,
		BuildURL(s.siteURL, "auth", "callback"),
		BuildURL(s.siteURL, "auth", "failure"),
	), nil
}

// CompleteOAuth exchanges the callback token for a session and mirrors the
// account into the users collection.
func (s *AuthStore) CompleteOAuth(ctx context.Context, userID, secret string) (AuthSession, error) {
	if userID == "" || secret == "" {
		return AuthSession{}, &FormError{Message: "Invalid OAuth callback parameters."}
	}
	sess, err := s.accounts.CreateSession(ctx, userID, secret)
	if err != nil {
		s.log.Error("oauth: create session", "user", userID, "error", err)
		return AuthSession{}, fmt.Errorf("oauth callback: %w", err)
	}
	userCtx := backend.WithSession(ctx, sess.Secret)
	u, err := s.FetchUser(userCtx)
	if err != nil {
		return AuthSession{}, err
	}
	if _, err := s.databases.UpsertDocument(userCtx, s.users, userID, u.Data(), backend.OwnerPermissions(userID)); err != nil {
		s.log.Error("oauth: upsert user", "user", userID, "error", err)
		return AuthSession{}, fmt.Errorf("oauth callback: %w", err)
	}
	return AuthSession{Secret: sess.Secret, User: u}, nil
}

// Profile loads the public profile of userID from the users collection.
func (s *AuthStore) Profile(ctx context.Context, userID string) (backend.User, error) {
	doc, err := s.databases.GetDocument(ctx, s.users, userID)
	if err != nil {
		if !backend.IsNotFound(err) {
			s.log.Error("load profile", "user", userID, "error", err)
		}
		return backend.User{}, fmt.Errorf("profile %s: %w", userID, err)
	}
	return backend.UserFromDocument(doc), nil
}
