package resilience

import (
	"errors"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	errs := []error{ErrCircuitOpen, ErrRateLimitExceeded, ErrBulkheadFull, ErrTimeout}
	for i, a := range errs {
		if !strings.HasPrefix(a.Error(), "resilience: ") {
			t.Errorf("%v lacks package prefix", a)
		}
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
