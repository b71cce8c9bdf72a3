package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrEmailAlreadyUsed  = errors.New("email already used with a different last name")
	ErrUserNotRegistered = errors.New("user is not registered")
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidKeyField   = errors.New("invalid key field")
	ErrInvalidKeyStatus  = errors.New("invalid key status")
	ErrKeyAlreadyScanned = errors.New("key already collected")
	ErrRedeemNotEnabled  = errors.New("redeem is not enabled for this record")

	// Game session errors
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnknownKey          = errors.New("key is not required by this session")
	ErrKeyAlreadyCollected = errors.New("key already collected")
	ErrInvalidInteraction  = errors.New("invalid interaction")

	// Remote store errors, surfaced after the retry budget is spent
	ErrRateLimited       = errors.New("remote store rate limit exceeded")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrRemoteRejected    = errors.New("remote store rejected the request")
)
