package secret

import "errors"

var (
	// ErrMissingEnv is wrapped by expansion errors naming unset variables.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrUnknownProvider is returned for a reference to an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrNotFound is returned by a provider that has no value for a ref.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmpty is returned by a strict resolver for an empty secret.
	ErrEmpty = errors.New("secret: empty value")
)
