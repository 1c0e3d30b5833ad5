package codegrabber

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/codegrabber/codegrabber/backend"
)

var (
	// ErrForbidden is returned when a user tries to change a record they do
	// not own. No backend mutation has happened when it is returned.
	ErrForbidden = errors.New("codegrabber: forbidden")

	// ErrNotLoggedIn is returned by owner-only operations called without a user.
	ErrNotLoggedIn = errors.New("codegrabber: not logged in")
)

// FormError is an input problem with a message fit for display next to the
// form. No backend call has been made when it is returned.
type FormError struct {
	Message string
	Err     error
}

func (e *FormError) Error() string { return e.Message }

func (e *FormError) Unwrap() error { return e.Err }

const msgRequiredFields = "Please fill out all required fields."

// formError turns validator output into a FormError. Messages are looked up
// by "Field.tag", then by "tag"; unknown failures fall back to fallback.
func formError(err error, messages map[string]string, fallback string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &FormError{Message: fallback}
	}
	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return &FormError{Message: msg}
	}
	if msg, ok := messages[fe.Tag()]; ok {
		return &FormError{Message: msg}
	}
	return &FormError{Message: fallback}
}

// UserMessage returns the text shown to a user for err.
func UserMessage(err error) string {
	var fe *FormError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, ErrForbidden):
		return "You can only change your own content."
	case errors.Is(err, ErrNotLoggedIn):
		return "You must be logged in to do that."
	case backend.IsNotFound(err):
		return "The requested item could not be found."
	}
	return backend.Message(err)
}
