package domain

import "errors"

var (
	// ErrInvalidAddress is returned when a wallet address fails hex validation
	ErrInvalidAddress = errors.New("invalid address")

	// ErrSubscriptionFailed is returned when subscription to chain heads fails
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrEngineClosed is returned when subscribing to an engine that has shut down
	ErrEngineClosed = errors.New("engine closed")

	// ErrWatchNotFound is returned when a watched address does not exist
	ErrWatchNotFound = errors.New("watched address not found")
)
