package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/marioser/dolibarr-mcp/failure"
)

// FilterFunc builds the upstream sqlfilters expression from the arguments.
// Consumed reports the argument names the filter reads, so they are not sent
// again as query parameters or body fields.
type FilterFunc struct {
	Consumed []string
	Build    func(args map[string]any) (string, error)
}

// EscapeFilter escapes single quotes for use inside a quoted filter literal.
func EscapeFilter(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func requireString(args map[string]any, endpoint, name string) (string, error) {
	v, ok := stringArg(args, name)
	if !ok {
		return "", failure.ValidationError(endpoint, []string{name}, nil)
	}
	return v, nil
}

// LikePrefix matches column against "<arg>%".
func LikePrefix(endpoint, arg, column string) FilterFunc {
	return FilterFunc{
		Consumed: []string{arg},
		Build: func(args map[string]any) (string, error) {
			v, err := requireString(args, endpoint, arg)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(%s:like:'%s%%')", column, EscapeFilter(v)), nil
		},
	}
}

// LikeExact matches column against the literal argument value.
func LikeExact(endpoint, arg, column string) FilterFunc {
	return FilterFunc{
		Consumed: []string{arg},
		Build: func(args map[string]any) (string, error) {
			v, err := requireString(args, endpoint, arg)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(%s:like:'%s')", column, EscapeFilter(v)), nil
		},
	}
}

// LikeAny matches any of columns against "%<arg>%". A single column is not
// wrapped in an extra group.
func LikeAny(endpoint, arg string, columns ...string) FilterFunc {
	return FilterFunc{
		Consumed: []string{arg},
		Build: func(args map[string]any) (string, error) {
			v, err := requireString(args, endpoint, arg)
			if err != nil {
				return "", err
			}
			q := EscapeFilter(v)
			terms := make([]string, len(columns))
			for i, c := range columns {
				terms[i] = fmt.Sprintf("(%s:like:'%%%s%%')", c, q)
			}
			if len(terms) == 1 {
				return terms[0], nil
			}
			return "(" + strings.Join(terms, " OR ") + ")", nil
		},
	}
}

// DocumentFilter narrows invoice, order and proposal lists by third party
// (socid, alias customer_id) and a date window on dateColumn: year, or a
// month of a year, plus optional date_start and date_end (YYYY-MM-DD).
// When requireSocid is set, a missing socid is a Validation failure.
// A non-empty statusColumn turns the status argument into a filter term.
func DocumentFilter(endpoint, dateColumn string, requireSocid bool, statusColumn string) FilterFunc {
	consumed := []string{"socid", "customer_id", "year", "month", "date_start", "date_end"}
	if statusColumn != "" {
		consumed = append(consumed, "status")
	}
	return FilterFunc{
		Consumed: consumed,
		Build: func(args map[string]any) (string, error) {
			var filters []string

			socidArg, ok := args["socid"]
			if !ok || isBlank(socidArg) {
				socidArg = args["customer_id"]
			}
			if socid, ok := Int(socidArg); ok {
				filters = append(filters, fmt.Sprintf("(t.fk_soc:=:%d)", socid))
			} else if requireSocid {
				return "", failure.ValidationError(endpoint, []string{"socid"}, nil)
			}

			if statusColumn != "" {
				if status, ok := Int(args["status"]); ok {
					filters = append(filters, fmt.Sprintf("(%s:=:%d)", statusColumn, status))
				}
			}

			if year := intArg(args, "year", 0); year > 0 {
				from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
				to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
				if month := intArg(args, "month", 0); month >= 1 && month <= 12 {
					from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
					to = from.AddDate(0, 1, -1)
				}
				filters = append(filters,
					fmt.Sprintf("(%s:>=:'%s')", dateColumn, from.Format(time.DateOnly)),
					fmt.Sprintf("(%s:<=:'%s')", dateColumn, to.Format(time.DateOnly)),
				)
			}

			var invalid []failure.FieldError
			for _, bound := range []struct{ arg, op string }{{"date_start", ">="}, {"date_end", "<="}} {
				v, ok := stringArg(args, bound.arg)
				if !ok {
					continue
				}
				if _, err := time.Parse(time.DateOnly, v); err != nil {
					invalid = append(invalid, failure.FieldError{Field: bound.arg, Message: "must be a date in YYYY-MM-DD format"})
					continue
				}
				filters = append(filters, fmt.Sprintf("(%s:%s:'%s')", dateColumn, bound.op, v))
			}
			if len(invalid) > 0 {
				return "", failure.ValidationError(endpoint, nil, invalid)
			}

			return strings.Join(filters, " AND "), nil
		},
	}
}
