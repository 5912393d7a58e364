package catalog

// Response allow-lists. Records are trimmed to these keys before they are
// cached or returned.
var (
	CustomerFields = []string{"id", "name", "name_alias", "email", "phone", "address", "town", "zip", "country_code", "client", "fournisseur", "code_client", "status"}
	ProductFields  = []string{"id", "ref", "label", "description", "price", "price_ttc", "type", "status", "stock_reel", "barcode"}
	InvoiceFields  = []string{"id", "ref", "socid", "date", "date_lim_reglement", "total_ht", "total_tva", "total_ttc", "paye", "status", "lines"}
	OrderFields    = []string{"id", "ref", "socid", "date", "total_ht", "total_ttc", "status", "lines"}
	ProposalFields = []string{"id", "ref", "socid", "date", "fin_validite", "total_ht", "total_tva", "total_ttc", "status", "lines"}
	ProjectFields  = []string{"id", "ref", "title", "description", "socid", "status", "date_start", "date_end"}
	ContactFields  = []string{"id", "firstname", "lastname", "email", "phone", "socid"}
	UserFields     = []string{"id", "login", "lastname", "firstname", "email", "admin", "status"}

	// LineFields applies to the nested "lines" of invoices, orders and proposals.
	LineFields = []string{"id", "fk_product", "desc", "qty", "subprice", "total_ht", "total_ttc", "tva_tx"}
)

// FilterFields keeps only the allowed keys of data. Lists are filtered
// element-wise and a retained "lines" key is filtered with LineFields.
// Scalars pass through. A nil or empty allow-list returns data unchanged.
func FilterFields(data any, fields []string) any {
	if len(fields) == 0 {
		return data
	}
	switch v := data.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = FilterFields(item, fields)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			val, ok := v[f]
			if !ok {
				continue
			}
			if f == "lines" {
				if lines, isList := val.([]any); isList {
					val = FilterFields(lines, LineFields)
				}
			}
			out[f] = val
		}
		return out
	default:
		return data
	}
}
