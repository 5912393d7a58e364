package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultNamespace prefixes every operation key.
const DefaultNamespace = "dolibarr:tool"

// Keyer derives cache keys (fingerprints) from an operation and its arguments.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order,
//   within a process and across restarts.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key returns the fingerprint of (operation, args).
	Key(operation string, args any) (string, error)
	// Pattern returns the glob matching every key of operation.
	Pattern(operation string) string
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct {
	namespace string
}

// NewDefaultKeyer creates a keyer for namespace. An empty namespace uses
// DefaultNamespace.
func NewDefaultKeyer(namespace string) *DefaultKeyer {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &DefaultKeyer{namespace: namespace}
}

// Namespace returns the key prefix.
func (k *DefaultKeyer) Namespace() string {
	return k.namespace
}

// Key generates a deterministic cache key.
// Format: <namespace>:<operation>:<hash>
// where hash is the first 16 characters of SHA-256(canonical JSON(args))
func (k *DefaultKeyer) Key(operation string, args any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	canonical, err := canonicalize(args)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}

	hash := sha256.Sum256(canonical)
	hashStr := hex.EncodeToString(hash[:8]) // First 8 bytes = 16 hex chars

	return fmt.Sprintf("%s:%s:%s", k.namespace, operation, hashStr), nil
}

// Pattern returns "<namespace>:<operation>:*".
func (k *DefaultKeyer) Pattern(operation string) string {
	return k.namespace + ":" + operation + ":*"
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		// json.Marshal already sorts map[string]T keys and formats numbers
		// in their shortest exact form.
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
