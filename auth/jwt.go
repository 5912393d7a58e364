package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim).
	Issuer string

	// Audience is the expected token audience (aud claim).
	Audience string

	// PrincipalClaim is the claim containing the caller principal.
	// Default: "sub"
	PrincipalClaim string

	// RolesClaim is the claim containing caller roles.
	RolesClaim string
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// JWTAuthenticator validates HS256 bearer tokens.
type JWTAuthenticator struct {
	config      JWTConfig
	keyProvider KeyProvider
	parser      *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keyProvider KeyProvider) *JWTAuthenticator {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{
		config:      config,
		keyProvider: keyProvider,
		parser:      jwt.NewParser(opts...),
	}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Supports returns true for a bearer token shaped like a JWT.
func (a *JWTAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	token, ok := req.BearerToken()
	return ok && looksLikeJWT(token)
}

// Authenticate validates the JWT token.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	tokenString, ok := req.BearerToken()
	if !ok {
		return AuthFailure(ErrMissingCredentials, "jwt"), nil
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return a.keyProvider.GetKey(ctx, kid)
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthFailure(ErrTokenExpired, "jwt"), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return AuthFailure(ErrTokenMalformed, "jwt"), nil
	default:
		return AuthFailure(ErrInvalidCredentials, "jwt"), nil
	}

	return AuthSuccess(a.buildIdentity(claims)), nil
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	identity := &Identity{
		Method: AuthMethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		identity.Claims[k] = v
	}

	if principal, ok := claims[a.config.PrincipalClaim].(string); ok {
		identity.Principal = principal
	}

	if a.config.RolesClaim != "" {
		if roles, ok := claims[a.config.RolesClaim].([]any); ok {
			identity.Roles = make([]string, 0, len(roles))
			for _, r := range roles {
				if s, ok := r.(string); ok {
					identity.Roles = append(identity.Roles, s)
				}
			}
		}
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}
	return identity
}

// Ensure JWTAuthenticator implements Authenticator
var _ Authenticator = (*JWTAuthenticator)(nil)

// Ensure StaticKeyProvider implements KeyProvider
var _ KeyProvider = (*StaticKeyProvider)(nil)
