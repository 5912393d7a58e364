package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded.
//   - If `${VAR}` is present but VAR is unset, it errors with ErrMissingEnv.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	return Expand(s, os.LookupEnv)
}

// Expand is ExpandEnvStrict over an arbitrary lookup function.
func Expand(s string, lookup func(string) (string, bool)) (string, error) {
	const dollarSentinel = "\x00DOLIBARR_MCP_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	var missing []string
	seen := make(map[string]bool)
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		key := match[1]
		if _, ok := lookup(key); !ok && !seen[key] {
			seen[key] = true
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	s = os.Expand(s, func(key string) string {
		v, _ := lookup(key)
		return v
	})
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}
