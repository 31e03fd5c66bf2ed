package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing title, non-positive price).
// Handlers should map this to HTTP 400 Bad Request.
var ErrValidation = errors.New("validation error")

// ErrDuplicateKey is returned by the repo when an insert collides with an
// existing slug or SKU. The service treats it as retryable.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrGenerationExhausted is returned when no unused slug or SKU could be
// produced within the retry budget.
// Handlers should map this to HTTP 500.
var ErrGenerationExhausted = errors.New("identifier generation exhausted")

// ErrStoreUnavailable is returned when the database cannot be reached or a
// store call exceeds its timeout. It is never retried by the service.
var ErrStoreUnavailable = errors.New("store unavailable")
