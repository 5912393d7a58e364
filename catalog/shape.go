package catalog

// Shape normalises a raw upstream result for this operation: result mode,
// field allow-list, then pagination. The output is what gets cached.
func (d Descriptor) Shape(result any, args map[string]any) any {
	switch d.Result {
	case ResultID:
		return ExtractID(result)
	case ResultResolveRef:
		ref, _ := stringArg(args, "ref")
		return ResolveRef(result, ref, d.ResponseFields)
	case ResultList:
		if _, ok := result.([]any); !ok {
			result = []any{}
		}
	}

	shaped := FilterFields(result, d.ResponseFields)

	if d.Paginated {
		if items, ok := shaped.([]any); ok {
			return Paginate(items, d.limit(args), d.offset(args))
		}
	}
	return shaped
}

func (d Descriptor) limit(args map[string]any) int {
	def := d.DefaultLimit
	if def <= 0 {
		def = 100
	}
	if n := intArg(args, "limit", def); n > 0 {
		return n
	}
	return def
}

func (d Descriptor) offset(args map[string]any) int {
	page := intArg(args, "page", 0)
	if page <= 1 {
		return 0
	}
	return (page - 1) * d.limit(args)
}

// Paginate wraps items as {items, pagination}. A full page means more
// results may follow.
func Paginate(items []any, limit, offset int) map[string]any {
	return map[string]any{
		"items": items,
		"pagination": map[string]any{
			"limit":    limit,
			"offset":   offset,
			"count":    len(items),
			"has_more": len(items) >= limit,
		},
	}
}

// ExtractID returns the created record identifier from a create response:
// the body itself when scalar, "id", or "success.id".
func ExtractID(result any) any {
	m, ok := result.(map[string]any)
	if !ok {
		return result
	}
	if id, ok := m["id"]; ok {
		return id
	}
	if success, ok := m["success"].(map[string]any); ok {
		if id, ok := success["id"]; ok {
			return id
		}
	}
	return result
}

// Resolution statuses of an exact reference lookup.
const (
	RefOK        = "ok"
	RefNotFound  = "not_found"
	RefAmbiguous = "ambiguous"
)

// ResolveRef classifies the products returned for an exact ref search.
// A single hit, or a single exact match among several, is ok.
func ResolveRef(result any, ref string, fields []string) map[string]any {
	products, _ := result.([]any)
	switch len(products) {
	case 0:
		return map[string]any{"status": RefNotFound, "ref": ref}
	case 1:
		return map[string]any{"status": RefOK, "product": FilterFields(products[0], fields)}
	}

	var exact []any
	for _, p := range products {
		if m, ok := p.(map[string]any); ok && m["ref"] == ref {
			exact = append(exact, p)
		}
	}
	if len(exact) == 1 {
		return map[string]any{"status": RefOK, "product": FilterFields(exact[0], fields)}
	}
	return map[string]any{"status": RefAmbiguous, "products": FilterFields(products, fields)}
}
