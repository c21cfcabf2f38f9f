package dialogue

import "errors"

var (
	// ErrSessionExists indicates the chat already has an active dialogue.
	ErrSessionExists = errors.New("session already active")
	// ErrNoSession indicates there is no dialogue to act on.
	ErrNoSession = errors.New("no active session")
	// ErrUnauthorized indicates the sender is not on the allow-list.
	ErrUnauthorized = errors.New("sender not authorized")
)
