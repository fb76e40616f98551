package faceit

import "errors"

// Error kinds surfaced by the client. Callers dispatch with errors.Is; the
// wrapped text carries detail for logs, never for end users.
var (
	// ErrNotFound means the platform has no player for the given nickname.
	ErrNotFound = errors.New("faceit: player not found")

	// ErrAuth means the API key was rejected. Never retried.
	ErrAuth = errors.New("faceit: api key rejected")

	// ErrRateLimited means the retry budget was exhausted on 429 responses.
	ErrRateLimited = errors.New("faceit: rate limit exceeded")

	// ErrTransient means the retry budget was exhausted on 5xx or
	// connection-level failures.
	ErrTransient = errors.New("faceit: upstream unavailable")
)
