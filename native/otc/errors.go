package otc

import "errors"

// Error kinds surfaced by the pool engine. Every mutating entry point fails
// with exactly one of these (possibly wrapped with additional detail), so
// callers can tell "fix your request" from "not permitted" from "create a
// new offer" via errors.Is.
var (
	ErrInvalidParameter    = errors.New("otc: invalid parameter")
	ErrAlreadyInitialized  = errors.New("otc: pool already initialized")
	ErrUnauthorized        = errors.New("otc: unauthorized")
	ErrCapacityExceeded    = errors.New("otc: capacity exceeded")
	ErrAlreadyExists       = errors.New("otc: entry already exists")
	ErrNotFound            = errors.New("otc: entry not found")
	ErrAssetNotWhitelisted = errors.New("otc: asset not whitelisted")
	ErrBelowMinimum        = errors.New("otc: amount below pool minimum")
	ErrLifetimeTooLong     = errors.New("otc: offer lifetime exceeds pool maximum")
	ErrNotOpen             = errors.New("otc: offer not open")
	ErrExpired             = errors.New("otc: offer expired")
	ErrNotExpired          = errors.New("otc: offer not expired")
	ErrInsufficientFunds   = errors.New("otc: insufficient funds")
	ErrPoolPaused          = errors.New("otc: pool paused")
	ErrPairNotSupported    = errors.New("otc: pair not supported")
	ErrInvalidExtension    = errors.New("otc: invalid expiration extension")
)
