package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrNotFound         = errors.New("user not found")
	ErrUnavailable      = errors.New("store unavailable")
)
