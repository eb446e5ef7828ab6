package notification

import "errors"

// Notification domain errors
var (
	// ErrDispatchInProgress means a concurrent attempt holds a fresh claim
	// on the same idempotency key.
	ErrDispatchInProgress = errors.New("a dispatch for this event is already in progress")

	// ErrAlreadyDispatched means the notification for this key was sent; the
	// caller should treat the dispatch as complete.
	ErrAlreadyDispatched = errors.New("notification already dispatched for this event")

	// ErrDispatchFailed means every delivery attempt was exhausted.
	ErrDispatchFailed = errors.New("notification dispatch failed after all attempts")

	ErrNotificationNotFound = errors.New("notification not found")
)
