package catalog

// invalidation lists, per mutating operation, the cached read operations
// that become stale when it succeeds. Every mutating operation must appear
// here; dolibarr_raw_api is listed with an empty set because its target
// endpoint is arbitrary.
var invalidation = map[string][]string{
	"create_customer": {"get_customers", "search_customers"},
	"update_customer": {"get_customers", "get_customer_by_id", "search_customers"},
	"delete_customer": {"get_customers", "get_customer_by_id", "search_customers"},

	"create_product": {"get_products", "search_products_by_ref", "search_products_by_label"},
	"update_product": {"get_products", "get_product_by_id", "search_products_by_ref", "search_products_by_label", "resolve_product_ref"},
	"delete_product": {"get_products", "get_product_by_id", "search_products_by_ref", "search_products_by_label", "resolve_product_ref"},

	"create_invoice":      {"get_invoices", "get_customer_invoices"},
	"update_invoice":      {"get_invoices", "get_customer_invoices", "get_invoice_by_id"},
	"delete_invoice":      {"get_invoices", "get_customer_invoices", "get_invoice_by_id"},
	"add_invoice_line":    {"get_invoice_by_id"},
	"update_invoice_line": {"get_invoice_by_id"},
	"delete_invoice_line": {"get_invoice_by_id"},
	"validate_invoice":    {"get_invoices", "get_customer_invoices", "get_invoice_by_id"},

	"create_proposal":       {"get_proposals", "get_customer_proposals", "search_proposals"},
	"update_proposal":       {"get_proposals", "get_customer_proposals", "get_proposal_by_id", "search_proposals"},
	"delete_proposal":       {"get_proposals", "get_customer_proposals", "get_proposal_by_id", "search_proposals"},
	"add_proposal_line":     {"get_proposal_by_id"},
	"update_proposal_line":  {"get_proposal_by_id"},
	"delete_proposal_line":  {"get_proposal_by_id"},
	"validate_proposal":     {"get_proposals", "get_customer_proposals", "get_proposal_by_id"},
	"close_proposal":        {"get_proposals", "get_customer_proposals", "get_proposal_by_id"},
	"set_proposal_to_draft": {"get_proposals", "get_customer_proposals", "get_proposal_by_id"},

	"create_project": {"get_projects", "search_projects"},
	"update_project": {"get_projects", "get_project_by_id", "search_projects"},
	"delete_project": {"get_projects", "get_project_by_id", "search_projects"},

	"create_user": {"get_users"},
	"update_user": {"get_users", "get_user_by_id"},
	"delete_user": {"get_users", "get_user_by_id"},

	"create_contact": {"get_contacts"},
	"update_contact": {"get_contacts", "get_contact_by_id"},
	"delete_contact": {"get_contacts", "get_contact_by_id"},

	"create_order": {"get_orders", "get_customer_orders"},
	"update_order": {"get_orders", "get_customer_orders", "get_order_by_id"},
	"delete_order": {"get_orders", "get_customer_orders", "get_order_by_id"},

	"dolibarr_raw_api": {},
}

// UninvalidatedMutations names mutating operations that are allowed an
// empty invalidation set.
var UninvalidatedMutations = []string{"dolibarr_raw_api"}
