package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrUnauthorized  = errors.New("unauthorized access")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotChatMember = errors.New("user is not a chat member")

	// ErrUnsupportedChatType means a chat row carries a type the read-state
	// rules do not cover. It is never recovered from.
	ErrUnsupportedChatType = errors.New("unsupported chat type")
)
