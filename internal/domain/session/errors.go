package session

import "errors"

// Sentinel kinds for conversation errors.
var (
	ErrNoConversation  = errors.New("no conversation in progress")
	ErrUnexpectedState = errors.New("unexpected conversation state")
	ErrIncomplete      = errors.New("conversation missing expected field")
)
