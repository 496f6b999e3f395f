package shortener

import "errors"

// Sentinel errors returned (wrapped in *errx.Error) by the store, the cache and the service.
// Match them with errors.Is; use errx.KindOf for transport mapping.
var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrInvalidFormat     = errors.New("invalid code format")
	ErrInvalidExpiration = errors.New("invalid expiration")
	ErrDuplicateCode     = errors.New("code already exists")
	ErrNotFound          = errors.New("short link not found")
	ErrExpired           = errors.New("short link expired")
	ErrStoreUnavailable  = errors.New("link store unavailable")
	ErrCacheUnavailable  = errors.New("resolution cache unavailable")
)
