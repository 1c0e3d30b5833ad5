package backend

import (
	"errors"
	"net/http"
)

// ErrNotFound is returned when a document, file or account does not exist.
var ErrNotFound = errors.New("backend: not found")

// Error is a failure reported by the platform.
type Error struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return e.Message
}

// Is makes errors.Is(err, ErrNotFound) hold for 404 responses.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// IsNotFound reports whether err means the record is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Message returns the text to show a user for err: the platform message when
// there is one, the error string otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return err.Error()
}
