package catalog

// PayloadRules are client-side checks on a request body. Violations are
// reported as a Validation failure and the upstream is never called.
type PayloadRules struct {
	// Required keys must be present and non-blank.
	Required []string
	// RequiredAnyOf groups need at least one non-blank member each.
	RequiredAnyOf [][]string
	// NonEmpty keys must be non-blank when present.
	NonEmpty []string
	// NonNegative keys must be numbers >= 0 when present.
	NonNegative []string
	// Enums restrict keys to listed values; numbers and numeric strings
	// compare by value.
	Enums map[string][]any
	// AutoRef allows a missing "ref" to be generated instead of rejected.
	AutoRef bool
}

// Empty reports whether no rule is declared.
func (r PayloadRules) Empty() bool {
	return len(r.Required) == 0 && len(r.RequiredAnyOf) == 0 && len(r.NonEmpty) == 0 &&
		len(r.NonNegative) == 0 && len(r.Enums) == 0
}
