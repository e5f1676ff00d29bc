package negotiation

import "fmt"

// Error codes surfaced to handlers. Anything else coming out of this package
// is an internal failure.
const (
	CodeNotFound     = "notFound"
	CodeUnauthorized = "unauthorized"
	CodeInvalidState = "invalidState"
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewNotFoundError(msg string) error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func NewUnauthorizedError(msg string) error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

func NewInvalidStateError(msg string) error {
	return &Error{Code: CodeInvalidState, Message: msg}
}
