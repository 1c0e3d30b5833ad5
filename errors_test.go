package codegrabber

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/codegrabber/codegrabber/backend"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"form", fmt.Errorf("wrap: %w", &FormError{Message: "Bad slug."}), "Bad slug."},
		{"forbidden", fmt.Errorf("delete: %w", ErrForbidden), "You can only change your own content."},
		{"not logged in", ErrNotLoggedIn, "You must be logged in to do that."},
		{"not found", fmt.Errorf("x: %w", backend.ErrNotFound), "The requested item could not be found."},
		{"backend", &backend.Error{Code: 500, Message: "Server Error"}, "Server Error"},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormErrorUnwrap(t *testing.T) {
	err := &FormError{Message: "Log in first.", Err: ErrNotLoggedIn}
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Error("FormError should unwrap to its cause")
	}
}

func TestFormErrorLookup(t *testing.T) {
	v := validator.New(validator.WithRequiredStructEnabled())
	messages := map[string]string{
		"required":     "fill it in",
		"Password.min": "too short",
	}
	type form struct {
		Email    string `validate:"required,email"`
		Password string `validate:"min=8"`
	}

	tests := []struct {
		in   form
		want string
	}{
		{form{Password: "longenough"}, "fill it in"},
		{form{Email: "a@b.co", Password: "short"}, "too short"},
		{form{Email: "nope", Password: "longenough"}, "fallback"},
	}
	for _, tt := range tests {
		got := formError(v.Struct(tt.in), messages, "fallback")
		if got.Error() != tt.want {
			t.Errorf("formError(%+v) = %q, want %q", tt.in, got.Error(), tt.want)
		}
	}

	if got := formError(errors.New("odd"), messages, "fallback"); got.Error() != "fallback" {
		t.Errorf("non-validation error = %q", got.Error())
	}
}
