package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// APIKeyHeader is the alternate header carrying an API key.
const APIKeyHeader = "X-API-Key"

// keyIDLen is the number of hash characters kept as the key id.
const keyIDLen = 8

// HashAPIKey hashes an API key using SHA-256 for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// GenerateAPIKey returns a new random key of n bytes, hex encoded.
// Non-positive n defaults to 32.
func GenerateAPIKey(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ParseKeys splits a comma-separated key list, dropping blanks.
func ParseKeys(list string) []string {
	var keys []string
	for _, k := range strings.Split(list, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Keyring holds the hashes of the accepted API keys.
type Keyring struct {
	mu     sync.RWMutex
	hashes map[string]string // hash -> key id
}

// NewKeyring hashes keys into a new keyring.
func NewKeyring(keys ...string) *Keyring {
	k := &Keyring{hashes: make(map[string]string, len(keys))}
	for _, key := range keys {
		k.Add(key)
	}
	return k
}

// Add accepts key. Blank keys are ignored.
func (k *Keyring) Add(key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	hash := HashAPIKey(key)
	k.mu.Lock()
	k.hashes[hash] = hash[:keyIDLen]
	k.mu.Unlock()
}

// Lookup returns the key id for key.
func (k *Keyring) Lookup(key string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	id, ok := k.hashes[HashAPIKey(key)]
	return id, ok
}

// Len returns the number of configured keys.
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.hashes)
}

// APIKeyAuthenticator validates API keys against a Keyring.
type APIKeyAuthenticator struct {
	keys *Keyring
}

// NewAPIKeyAuthenticator creates a new API key authenticator.
func NewAPIKeyAuthenticator(keys *Keyring) *APIKeyAuthenticator {
	if keys == nil {
		keys = NewKeyring()
	}
	return &APIKeyAuthenticator{keys: keys}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return "api_key"
}

// Supports returns true for an X-API-Key header or a bearer token that is
// not shaped like a JWT.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	_, ok := a.credential(req)
	return ok
}

// Authenticate validates the API key.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	key, ok := a.credential(req)
	if !ok {
		return AuthFailure(ErrMissingCredentials, "api_key"), nil
	}
	if a.keys.Len() == 0 {
		return AuthFailure(ErrNoKeys, "api_key"), nil
	}

	id, ok := a.keys.Lookup(key)
	if !ok {
		return AuthFailure(ErrInvalidCredentials, "api_key"), nil
	}
	return AuthSuccess(&Identity{
		Principal: "key:" + id,
		KeyID:     id,
		Method:    AuthMethodAPIKey,
		Claims:    map[string]any{"key_id": id},
	}), nil
}

func (a *APIKeyAuthenticator) credential(req *AuthRequest) (string, bool) {
	if key := strings.TrimSpace(req.GetHeader(APIKeyHeader)); key != "" {
		return key, true
	}
	if token, ok := req.BearerToken(); ok && !looksLikeJWT(token) {
		return token, true
	}
	return "", false
}

// Ensure APIKeyAuthenticator implements Authenticator
var _ Authenticator = (*APIKeyAuthenticator)(nil)
