package messaging

import "errors"

// Error kinds surfaced to the transport layer.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
)

// Error carries a client-safe message alongside its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func invalidArgument(msg string) error {
	return &Error{Kind: ErrInvalidArgument, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

var (
	errConversationNotFound = notFound("Conversation not found")
	errUserNotFound         = notFound("User not found")
)
