package upstream

import "errors"

// Configuration errors returned by New.
var (
	ErrMissingBaseURL = errors.New("upstream: base URL is required")
	ErrInvalidBaseURL = errors.New("upstream: invalid base URL")
	ErrMissingAPIKey  = errors.New("upstream: API key is required")
)
