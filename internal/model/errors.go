package model

import "errors"

var (
	// Session token errors. Signature, structure and expiry failures all
	// collapse into ErrInvalidToken so callers cannot tell which check
	// rejected the token.
	ErrInvalidToken = errors.New("invalid token")

	// Identity provider errors
	ErrExchangeFailed     = errors.New("authorization code exchange failed")
	ErrProfileFetchFailed = errors.New("profile fetch failed")

	// Vault / identity errors
	ErrCredentialMissing = errors.New("discord token not found")
	ErrIdentityNotFound  = errors.New("user not found")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Resource link errors
	ErrInvalidExpiry = errors.New("expiry must be in the future")

	// Persistence errors
	ErrStorage = errors.New("storage error")

	// Downstream bot API: the update call drops the connection when the
	// restart actually happens. Glue-layer only.
	ErrBotRestarting = errors.New("bot restarting")
)
