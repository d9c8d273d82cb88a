package leads

import "errors"

var (
	// ErrInvalidInput is the only failure Submit surfaces to callers.
	ErrInvalidInput = errors.New("leads: invalid input")

	// ErrInvalidPhone is returned when a number fails mobile validation
	ErrInvalidPhone = errors.New("please enter a valid 10-digit Indian phone number")

	// ErrRemoteUnavailable is returned by remote stores that are not configured
	ErrRemoteUnavailable = errors.New("leads: remote store unavailable")
)
