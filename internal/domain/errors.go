package domain

import "errors"

var (
	ErrInvalidStatus         = errors.New("invalid presence status")
	ErrStaleTimestamp        = errors.New("timestamp is older than the latest presence record")
	ErrInvalidResponseWindow = errors.New("responded_at is before received_at")
	ErrEmptyMessageID        = errors.New("empty message id")
	ErrPresenceNotFound      = errors.New("presence not found")
	ErrUserNotFound          = errors.New("user not found")
)
