package service

import "errors"

var (
	// ErrThreadNotFound indicates the referenced thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrMessageNotFound indicates the referenced message does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrEmptyContent indicates message content was empty after sanitization.
	ErrEmptyContent = errors.New("message content empty after sanitization")
	// ErrClassifierUnavailable indicates the content safety classifier could
	// not be reached. The send path fails closed on this error.
	ErrClassifierUnavailable = errors.New("content safety classifier unavailable")
	// ErrMessageTooLong indicates an assistant turn exceeded the length guard.
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided seed token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)
