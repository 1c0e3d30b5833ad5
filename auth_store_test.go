package codegrabber

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/backend/backendtest"
	"github.com/codegrabber/codegrabber/logger"
)

func newAuthStore(fake *backendtest.Fake) *AuthStore {
	v := validator.New(validator.WithRequiredStructEnabled())
	return NewAuthStore(fake.Client(), "users", "https://codegrabber.dev", logger.Discard(), v)
}

func TestSignIn(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("u1", "ada@example.com", "password123", "ada")
	s := newAuthStore(fake)

	res, err := s.SignIn(context.Background(), " ada@example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ada", res.User.Username)
	assert.NotEmpty(t, res.Secret)

	_, err = s.SignIn(context.Background(), "ada@example.com", "nope")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(UserMessage(err), "Invalid credentials"))

	fake.Reset()
	_, err = s.SignIn(context.Background(), "not-an-email", "x")
	assert.Equal(t, "Please enter a valid email address.", UserMessage(err))
	assert.Equal(t, 0, fake.TotalCalls())
}

func TestSignUp(t *testing.T) {
	fake := backendtest.New()
	s := newAuthStore(fake)

	res, err := s.SignUp(context.Background(), SignUpInput{
		Email:    "grace@example.com",
		Password: "longenough",
		Username: " grace ",
		Bio:      "COBOL",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace", res.User.Username)
	assert.Equal(t, "COBOL", res.User.Bio)
	assert.True(t, fake.HasDocument("users", res.User.ID))
	assert.Equal(t, 1, fake.Calls("UpdatePrefs"))

	_, err = s.SignUp(context.Background(), SignUpInput{Email: "grace@example.com", Password: "longenough", Username: "g2"})
	require.Error(t, err)
	assert.Contains(t, UserMessage(err), "already exists")
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		in   SignUpInput
		want string
	}{
		{SignUpInput{Password: "longenough", Username: "x"}, msgRequiredFields},
		{SignUpInput{Email: "a@b.co", Password: "short", Username: "x"}, "Password must be at least 8 characters."},
		{SignUpInput{Email: "a@b.co", Password: "longenough", Username: "x", ProfilePicture: "nope"}, "Profile picture must be a valid URL."},
		{SignUpInput{Email: "a@b.co", Password: "longenough", Username: strings.Repeat("x", 129)}, "Username is too long."},
	}
	for _, tt := range tests {
		fake := backendtest.New()
		_, err := newAuthStore(fake).SignUp(context.Background(), tt.in)
		assert.Equal(t, tt.want, UserMessage(err))
		assert.Equal(t, 0, fake.TotalCalls())
	}
}

func TestUpdateUserMergesFields(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("u1", "ada@example.com", "password123", "ada")
	ctx := backend.WithSession(context.Background(), fake.IssueSession("u1"))
	s := newAuthStore(fake)

	// The session copy of the user carries no bio.
	current := &backend.User{ID: "u1", Username: "ada", Email: "ada@example.com"}
	_, err := s.UpdateUser(ctx, current, ProfileInput{Bio: "Engines"})
	require.NoError(t, err)
	u, err := s.UpdateUser(ctx, current, ProfileInput{ProfilePicture: "https://img.example.com/ada.png"})
	require.NoError(t, err)

	assert.Equal(t, "ada", u.Username)
	assert.Equal(t, "Engines", u.Bio)
	assert.Equal(t, "https://img.example.com/ada.png", u.ProfilePicture)

	profile, err := s.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/ada.png", profile.ProfilePicture)

	_, err = s.UpdateUser(ctx, nil, ProfileInput{})
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = s.UpdateUser(ctx, &backend.User{ID: "u2"}, ProfileInput{Bio: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOAuth(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("u1", "ada@example.com", "pw", "ada")
	s := newAuthStore(fake)

	target, err := s.OAuthURL("github")
	require.NoError(t, err)
	assert.Contains(t, target, "/oauth2/github?")
	assert.Contains(t, target, "success=https://codegrabber.dev/auth/callback/")

	_, err = s.OAuthURL("myspace")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = s.CompleteOAuth(context.Background(), "", "")
	assert.Equal(t, "Invalid OAuth callback parameters.", UserMessage(err))

	res, err := s.CompleteOAuth(context.Background(), "u1", "token")
	require.NoError(t, err)
	assert.Equal(t, "ada", res.User.Username)
	assert.True(t, fake.HasDocument("users", "u1"))
}
