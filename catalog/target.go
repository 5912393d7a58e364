package catalog

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/marioser/dolibarr-mcp/failure"
)

// BodyMode selects how a call target builds its JSON request body.
type BodyMode int

const (
	// NoBody sends no body.
	NoBody BodyMode = iota
	// ArgsBody merges the "data" argument with every argument that is not a
	// path, query or filter argument.
	ArgsBody
	// FixedBody sends only the declared Fields.
	FixedBody
)

// QueryParam maps an argument onto a query parameter.
type QueryParam struct {
	Arg string
	// Key is the upstream query key. Defaults to Arg.
	Key string
	// Default is sent when the argument is absent. Nil omits the parameter.
	Default any
	// Fixed is always sent and no argument is read.
	Fixed bool
}

func (q QueryParam) key() string {
	if q.Key != "" {
		return q.Key
	}
	return q.Arg
}

// BodyField maps an argument onto a key of a FixedBody.
type BodyField struct {
	Key      string
	Arg      string
	Default  any
	Required bool
}

// Request is a fully built upstream request.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     map[string]any
	// Status marks the health/status endpoint, which lives outside the
	// versioned API root and has fallback probes.
	Status bool
}

// CallTarget declares one upstream call: how arguments become a method,
// endpoint, query string and body.
//
// Contract:
//   - Build never mutates args.
//   - Every {placeholder} in Path is required; a missing one is a Validation
//     failure before any network call.
type CallTarget struct {
	Name   string
	Method string
	Path   string
	Query  []QueryParam
	Filter *FilterFunc
	Body   BodyMode
	Fields []BodyField

	// Aliases renames body keys (from -> to) unless the target key is already set.
	Aliases map[string]string
	// LineAliases renames keys inside each element of a "lines" body list.
	LineAliases map[string]string
	// Transform adjusts the body after aliasing.
	Transform func(body map[string]any)

	Rules  PayloadRules
	Status bool
	// Raw reads method, endpoint, params and data from the arguments.
	Raw bool
}

// PathParams returns the placeholder names of Path in order.
func (t CallTarget) PathParams() []string {
	var names []string
	rest := t.Path
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return names
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return names
		}
		names = append(names, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}

// consumed reports the arguments that never reach an ArgsBody.
func (t CallTarget) consumed() map[string]bool {
	out := map[string]bool{"data": true}
	for _, p := range t.PathParams() {
		out[p] = true
	}
	for _, q := range t.Query {
		if !q.Fixed {
			out[q.Arg] = true
		}
	}
	if t.Filter != nil {
		for _, a := range t.Filter.Consumed {
			out[a] = true
		}
	}
	return out
}

// Build turns args into a Request.
func (t CallTarget) Build(args map[string]any) (Request, error) {
	if t.Raw {
		return buildRaw(args)
	}
	if args == nil {
		args = map[string]any{}
	}

	endpoint, err := t.endpoint(args)
	if err != nil {
		return Request{}, err
	}
	req := Request{
		Method:   t.Method,
		Endpoint: endpoint,
		Status:   t.Status,
	}

	query, err := t.query(args, endpoint)
	if err != nil {
		return Request{}, err
	}
	if len(query) > 0 {
		req.Query = query
	}

	switch t.Body {
	case ArgsBody:
		req.Body = t.argsBody(args)
	case FixedBody:
		body, err := t.fixedBody(args, endpoint)
		if err != nil {
			return Request{}, err
		}
		req.Body = body
	}
	return req, nil
}

func (t CallTarget) endpoint(args map[string]any) (string, error) {
	path := t.Path
	var missing []string
	for _, name := range t.PathParams() {
		v, ok := stringArg(args, name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		path = strings.Replace(path, "{"+name+"}", url.PathEscape(v), 1)
	}
	if len(missing) > 0 {
		return "", failure.ValidationError(t.Path, missing, nil)
	}
	return path, nil
}

func (t CallTarget) query(args map[string]any, endpoint string) (url.Values, error) {
	q := url.Values{}
	for _, p := range t.Query {
		var v any
		if p.Fixed {
			v = p.Default
		} else if a, ok := args[p.Arg]; ok && !isBlank(a) {
			v = a
		} else {
			v = p.Default
		}
		if v == nil {
			continue
		}
		s, err := Scalar(v)
		if err != nil {
			return nil, failure.ValidationError(endpoint, nil, []failure.FieldError{{Field: p.Arg, Message: "must be a scalar value"}})
		}
		q.Set(p.key(), s)
	}
	if t.Filter != nil {
		expr, err := t.Filter.Build(args)
		if err != nil {
			if f, ok := failure.As(err); ok && f.Endpoint == "" {
				f.Endpoint = endpoint
			}
			return nil, err
		}
		if expr != "" {
			q.Set("sqlfilters", expr)
		}
	}
	return q, nil
}

func (t CallTarget) argsBody(args map[string]any) map[string]any {
	body := map[string]any{}
	if data, ok := args["data"].(map[string]any); ok {
		for k, v := range data {
			body[k] = v
		}
	}
	skip := t.consumed()
	for k, v := range args {
		if !skip[k] {
			body[k] = v
		}
	}

	for from, to := range t.Aliases {
		v, ok := body[from]
		if !ok || isBlank(v) {
			continue
		}
		if _, exists := body[to]; !exists {
			body[to] = v
		}
		delete(body, from)
	}

	if len(t.LineAliases) > 0 {
		if lines, ok := body["lines"].([]any); ok {
			body["lines"] = aliasLines(lines, t.LineAliases)
		}
	}

	if t.Transform != nil {
		t.Transform(body)
	}
	return body
}

func aliasLines(lines []any, aliases map[string]string) []any {
	out := make([]any, len(lines))
	for i, line := range lines {
		m, ok := line.(map[string]any)
		if !ok {
			out[i] = line
			continue
		}
		c := cloneArgs(m)
		for from, to := range aliases {
			if v, ok := c[from]; ok {
				if _, exists := c[to]; !exists {
					c[to] = v
				}
				delete(c, from)
			}
		}
		out[i] = c
	}
	return out
}

func (t CallTarget) fixedBody(args map[string]any, endpoint string) (map[string]any, error) {
	body := make(map[string]any, len(t.Fields))
	var missing []string
	for _, f := range t.Fields {
		v, ok := args[f.Arg]
		if !ok || isBlank(v) {
			if f.Required {
				missing = append(missing, f.Arg)
				continue
			}
			v = f.Default
		}
		body[f.Key] = v
	}
	if len(missing) > 0 {
		return nil, failure.ValidationError(endpoint, missing, nil)
	}
	return body, nil
}

var rawMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

func buildRaw(args map[string]any) (Request, error) {
	var missing []string
	method, ok := stringArg(args, "method")
	if !ok {
		missing = append(missing, "method")
	}
	endpoint, ok := stringArg(args, "endpoint")
	if !ok {
		missing = append(missing, "endpoint")
	}
	if len(missing) > 0 {
		return Request{}, failure.ValidationError("raw", missing, nil)
	}

	method = strings.ToUpper(method)
	if !slices.Contains(rawMethods, method) {
		return Request{}, failure.ValidationError(endpoint, nil, []failure.FieldError{
			{Field: "method", Message: "must be one of GET, POST, PUT, DELETE"},
		})
	}
	endpoint = strings.TrimLeft(endpoint, "/")

	req := Request{Method: method, Endpoint: endpoint, Status: endpoint == "status"}
	if params, ok := args["params"].(map[string]any); ok && len(params) > 0 {
		req.Query = url.Values{}
		for k, v := range params {
			s, err := Scalar(v)
			if err != nil {
				return Request{}, failure.ValidationError(endpoint, nil, []failure.FieldError{{Field: "params." + k, Message: "must be a scalar value"}})
			}
			req.Query.Set(k, s)
		}
	}
	if data, ok := args["data"].(map[string]any); ok {
		req.Body = cloneArgs(data)
	}
	return req, nil
}
