package services

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrNoCurrentResume   = errors.New("user has no current resume")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusConflict means the row changed status since it was read.
	ErrStatusConflict = errors.New("status changed concurrently")
)
