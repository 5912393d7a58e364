package upstream

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/failure"
)

var (
	present = validation.By(func(v any) error {
		if isBlank(v) {
			return validation.ErrRequired
		}
		return nil
	})

	nonNegative = validation.Min(0.0).Error("must be a non-negative number")
)

// oneOf accepts values equal to one of allowed. Numbers and numeric
// strings compare by value, so 1, 1.0 and "1" are the same.
func oneOf(allowed []any) validation.Rule {
	return validation.By(func(v any) error {
		for _, a := range allowed {
			if sameValue(v, a) {
				return nil
			}
		}
		return validation.NewError("validation_in_invalid", "must be one of "+formatAllowed(allowed))
	})
}

func sameValue(a, b any) bool {
	if an, ok := catalog.Number(a); ok {
		bn, ok := catalog.Number(b)
		return ok && an == bn
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	return aok && bok && as == bs
}

func formatAllowed(allowed []any) string {
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = fmt.Sprint(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// validatePayload checks body against rules and returns a Validation
// failure listing every missing and invalid field.
func validatePayload(endpoint string, body map[string]any, rules catalog.PayloadRules) error {
	var missing []string
	var invalid []failure.FieldError

	for _, key := range rules.Required {
		if isMissing(validation.Validate(body[key], present)) {
			missing = append(missing, key)
		}
	}

	for _, group := range rules.RequiredAnyOf {
		satisfied := false
		for _, key := range group {
			if validation.Validate(body[key], present) == nil {
				satisfied = true
				break
			}
		}
		if !satisfied {
			missing = append(missing, strings.Join(group, " or "))
		}
	}

	for _, key := range rules.NonEmpty {
		v, ok := body[key]
		if ok && isMissing(validation.Validate(v, present)) && !slices.Contains(missing, key) {
			missing = append(missing, key)
		}
	}

	for _, key := range rules.NonNegative {
		n, ok := catalog.Number(body[key])
		if !ok {
			continue
		}
		if err := validation.Validate(n, nonNegative); err != nil {
			invalid = append(invalid, failure.FieldError{Field: key, Message: err.Error()})
		}
	}

	for _, key := range slices.Sorted(maps.Keys(rules.Enums)) {
		v, ok := body[key]
		if !ok {
			continue
		}
		if err := validation.Validate(v, oneOf(rules.Enums[key])); err != nil {
			invalid = append(invalid, failure.FieldError{Field: key, Message: err.Error()})
		}
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}
	return failure.ValidationError(endpoint, missing, invalid)
}

func isMissing(err error) bool {
	var verr validation.Error
	return errors.As(err, &verr) && verr.Code() == validation.ErrRequired.Code()
}

// generateRef returns {prefix}_{UTC yyyymmddhhmmss}_{8 hex chars}.
func generateRef(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + "_" + now.UTC().Format("20060102150405") + "_" + suffix
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
