package auth

import "context"

// CompositeAuthenticator tries authenticators in order and returns the
// result of the first one that supports the request.
type CompositeAuthenticator struct {
	Authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator. Nil entries
// are dropped.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range auths {
		if a != nil {
			c.Authenticators = append(c.Authenticators, a)
		}
	}
	return c
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Supports returns true if any authenticator supports the request.
func (c *CompositeAuthenticator) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, auth := range c.Authenticators {
		if auth.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate delegates to the first supporting authenticator. A failed
// result falls through to the next one; the last failure is returned.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var last *AuthResult
	for _, auth := range c.Authenticators {
		if !auth.Supports(ctx, req) {
			continue
		}
		result, err := auth.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}
	if last != nil {
		return last, nil
	}
	return AuthFailure(ErrMissingCredentials, ""), nil
}

// Ensure CompositeAuthenticator implements Authenticator
var _ Authenticator = (*CompositeAuthenticator)(nil)
