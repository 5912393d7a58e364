package catalog

import (
	"net/http"
	"time"
)

// entity describes the standard CRUD family of one business record type.
type entity struct {
	singular string
	plural   string
	path     string
	idArg    string
	fields   []string
	ttl      time.Duration

	listDesc   string
	getDesc    string
	createDesc string
	updateDesc string
	deleteDesc string

	listQuery  []QueryParam
	listFilter *FilterFunc
	listParams []Param

	createParams []Param
	updateParams []Param
	rules        PayloadRules

	aliases         map[string]string
	lineAliases     map[string]string
	createTransform func(map[string]any)
	updateTransform func(map[string]any)
}

func (e entity) descriptors() []Descriptor {
	item := e.path + "/{" + e.idArg + "}"
	idParam := Param{Name: e.idArg, Type: IntegerParam, Required: true, Description: titleCase(e.singular) + " ID"}

	listLimit := 100
	for _, q := range e.listQuery {
		if q.Arg == "limit" {
			if n, ok := Int(q.Default); ok {
				listLimit = n
			}
		}
	}

	return []Descriptor{
		{
			Name:        "get_" + e.plural,
			Description: e.listDesc,
			Target: CallTarget{
				Name:   "get_" + e.plural,
				Method: http.MethodGet,
				Path:   e.path,
				Query:  e.listQuery,
				Filter: e.listFilter,
			},
			Cacheable:      true,
			TTL:            e.ttl,
			ResponseFields: e.fields,
			Paginated:      true,
			DefaultLimit:   listLimit,
			Result:         ResultList,
			Params:         e.listParams,
		},
		{
			Name:        "get_" + e.singular + "_by_id",
			Description: e.getDesc,
			Target: CallTarget{
				Name:   "get_" + e.singular + "_by_id",
				Method: http.MethodGet,
				Path:   item,
			},
			Cacheable:      true,
			TTL:            e.ttl,
			ResponseFields: e.fields,
			Params:         []Param{idParam},
		},
		{
			Name:        "create_" + e.singular,
			Description: e.createDesc,
			Target: CallTarget{
				Name:        "create_" + e.singular,
				Method:      http.MethodPost,
				Path:        e.path,
				Body:        ArgsBody,
				Aliases:     e.aliases,
				LineAliases: e.lineAliases,
				Transform:   e.createTransform,
				Rules:       e.rules,
			},
			Invalidates: invalidation["create_"+e.singular],
			Result:      ResultID,
			Params:      append(e.createParams, dataParam),
		},
		{
			Name:        "update_" + e.singular,
			Description: e.updateDesc,
			Target: CallTarget{
				Name:        "update_" + e.singular,
				Method:      http.MethodPut,
				Path:        item,
				Body:        ArgsBody,
				Aliases:     e.aliases,
				LineAliases: e.lineAliases,
				Transform:   e.updateTransform,
			},
			Invalidates: invalidation["update_"+e.singular],
			Params:      append(append([]Param{idParam}, e.updateParams...), dataParam),
		},
		{
			Name:        "delete_" + e.singular,
			Description: e.deleteDesc,
			Target: CallTarget{
				Name:   "delete_" + e.singular,
				Method: http.MethodDelete,
				Path:   item,
			},
			Invalidates: invalidation["delete_"+e.singular],
			Params:      []Param{idParam},
		},
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

var (
	dataParam = Param{Name: "data", Type: ObjectParam, Description: "Additional fields sent to the API as-is"}

	limitQuery = func(def int) QueryParam { return QueryParam{Arg: "limit", Default: def} }
	pageQuery  = QueryParam{Arg: "page"}

	limitParam = func(def int) Param {
		return Param{Name: "limit", Type: IntegerParam, Default: def, Description: "Max results"}
	}
	pageParam   = Param{Name: "page", Type: IntegerParam, Description: "Page number"}
	statusParam = func(t ParamType, desc string) Param {
		return Param{Name: "status", Type: t, Description: desc}
	}
	windowParams = []Param{
		{Name: "year", Type: IntegerParam, Description: "Filter by year"},
		{Name: "month", Type: IntegerParam, Description: "Filter by month (1-12), requires year"},
	}
	rangeParams = []Param{
		{Name: "socid", Type: IntegerParam, Description: "Filter by customer ID"},
		{Name: "date_start", Type: StringParam, Description: "Earliest date (YYYY-MM-DD)"},
		{Name: "date_end", Type: StringParam, Description: "Latest date (YYYY-MM-DD)"},
	}
	linesParam = Param{Name: "lines", Type: ArrayParam, Description: "Line items: desc, qty, subprice, product_id, product_type, tva_tx"}
)

func params(groups ...[]Param) []Param {
	var out []Param
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func customerTypeFlags(body map[string]any, overwrite bool) {
	typeValue, ok := body["type"]
	delete(body, "type")
	if !ok || isBlank(typeValue) {
		if !overwrite {
			setDefault(body, "client", 1)
		}
		return
	}
	t, _ := Int(typeValue)
	client, supplier := 0, 0
	if t == 1 || t == 3 {
		client = 1
	}
	if t == 2 || t == 3 {
		supplier = 1
	}
	if overwrite {
		body["client"] = client
		body["fournisseur"] = supplier
		return
	}
	setDefault(body, "client", client)
	setDefault(body, "fournisseur", supplier)
}

func setDefault(body map[string]any, key string, value any) {
	if _, ok := body[key]; !ok {
		body[key] = value
	}
}

func entities() []entity {
	return []entity{
		{
			singular: "user", plural: "users", path: "users", idArg: "user_id",
			fields: UserFields, ttl: Medium,
			listDesc:   "List users with pagination. Returns id, login, lastname, firstname, email, admin, status.",
			getDesc:    "Get user by ID. Returns id, login, lastname, firstname, email, admin, status.",
			createDesc: "Create user. Required: login (unique), lastname. Optional: firstname, email, password, admin (0/1). Returns new user ID.",
			updateDesc: "Update user. Required: user_id. Optional: login, lastname, firstname, email, admin.",
			deleteDesc: "Delete user by ID. Cannot be undone.",
			listQuery:  []QueryParam{limitQuery(100), pageQuery},
			listParams: []Param{limitParam(100), pageParam},
			createParams: []Param{
				{Name: "login", Type: StringParam, Required: true, Description: "Login (unique)"},
				{Name: "lastname", Type: StringParam, Required: true, Description: "Last name"},
				{Name: "firstname", Type: StringParam, Description: "First name"},
				{Name: "email", Type: StringParam, Description: "Email address"},
				{Name: "password", Type: StringParam, Description: "Initial password"},
				{Name: "admin", Type: IntegerParam, Description: "1 for administrator"},
			},
			updateParams: []Param{
				{Name: "login", Type: StringParam, Description: "New login"},
				{Name: "lastname", Type: StringParam, Description: "New last name"},
				{Name: "firstname", Type: StringParam, Description: "New first name"},
				{Name: "email", Type: StringParam, Description: "New email"},
				{Name: "admin", Type: IntegerParam, Description: "1 for administrator"},
			},
		},
		{
			singular: "customer", plural: "customers", path: "thirdparties", idArg: "customer_id",
			fields: CustomerFields, ttl: Medium,
			listDesc:   "List customers with pagination. Returns id, name, email, phone, address, status.",
			getDesc:    "Get customer by ID. Returns id, name, email, phone, address, town, zip, status.",
			createDesc: "Create customer. Required: name. Optional: email, phone, address, town, zip, country_id, type (1=customer, 2=supplier, 3=both), status. Returns new ID.",
			updateDesc: "Update customer. Required: customer_id. Optional: name, email, phone, address, town, zip, status, type.",
			deleteDesc: "Delete customer by ID. Fails if the customer has linked documents.",
			listQuery:  []QueryParam{limitQuery(100), pageQuery},
			listParams: []Param{limitParam(100), pageParam},
			createParams: []Param{
				{Name: "name", Type: StringParam, Required: true, Description: "Company or person name"},
				{Name: "email", Type: StringParam, Description: "Email address"},
				{Name: "phone", Type: StringParam, Description: "Phone number"},
				{Name: "address", Type: StringParam, Description: "Street address"},
				{Name: "town", Type: StringParam, Description: "City"},
				{Name: "zip", Type: StringParam, Description: "Postal code"},
				{Name: "country_id", Type: IntegerParam, Default: 1, Description: "Country ID"},
				{Name: "type", Type: IntegerParam, Default: 1, Description: "1=customer, 2=supplier, 3=both"},
				{Name: "status", Type: IntegerParam, Default: 1, Description: "0=inactive, 1=active"},
			},
			updateParams: []Param{
				{Name: "name", Type: StringParam, Description: "New name"},
				{Name: "email", Type: StringParam, Description: "New email"},
				{Name: "phone", Type: StringParam, Description: "New phone"},
				{Name: "address", Type: StringParam, Description: "New street address"},
				{Name: "town", Type: StringParam, Description: "New city"},
				{Name: "zip", Type: StringParam, Description: "New postal code"},
				{Name: "status", Type: IntegerParam, Description: "0=inactive, 1=active"},
				{Name: "type", Type: IntegerParam, Description: "1=customer, 2=supplier, 3=both"},
			},
			createTransform: func(body map[string]any) {
				customerTypeFlags(body, false)
				setDefault(body, "status", 1)
				setDefault(body, "country_id", 1)
			},
			updateTransform: func(body map[string]any) {
				customerTypeFlags(body, true)
			},
		},
		{
			singular: "product", plural: "products", path: "products", idArg: "product_id",
			fields: ProductFields, ttl: Extended,
			listDesc:   "List products. Returns id, ref, label, price, price_ttc, type, status, stock_reel.",
			getDesc:    "Get product by ID. Returns id, ref, label, description, price, price_ttc, type, status, stock_reel, barcode.",
			createDesc: "Create product. Required: ref, label, type, price or price_ttc. Returns new product ID.",
			updateDesc: "Update product. Required: product_id. Optional: label, price, description.",
			deleteDesc: "Delete product by ID. Fails if the product has linked documents.",
			listQuery:  []QueryParam{limitQuery(100)},
			listParams: []Param{limitParam(100)},
			createParams: []Param{
				{Name: "ref", Type: StringParam, Description: "Product reference"},
				{Name: "label", Type: StringParam, Required: true, Description: "Product name"},
				{Name: "type", Type: StringParam, Required: true, Description: "product, service, 0 or 1"},
				{Name: "price", Type: NumberParam, Description: "Sale price excluding tax"},
				{Name: "price_ttc", Type: NumberParam, Description: "Sale price including tax"},
				{Name: "tva_tx", Type: NumberParam, Description: "VAT rate"},
				{Name: "description", Type: StringParam, Description: "Product description"},
			},
			updateParams: []Param{
				{Name: "label", Type: StringParam, Description: "New product name"},
				{Name: "price", Type: NumberParam, Description: "New sale price excluding tax"},
				{Name: "description", Type: StringParam, Description: "New description"},
			},
			aliases: map[string]string{"name": "label"},
			rules: PayloadRules{
				Required:      []string{"ref", "label", "type"},
				RequiredAnyOf: [][]string{{"price", "price_ttc"}},
				NonEmpty:      []string{"price", "price_ttc", "tva_tx"},
				NonNegative:   []string{"price", "price_ttc"},
				Enums:         map[string][]any{"type": {"product", "service", 0, 1}},
				AutoRef:       true,
			},
		},
		{
			singular: "invoice", plural: "invoices", path: "invoices", idArg: "invoice_id",
			fields: InvoiceFields, ttl: Medium,
			listDesc:   "List invoices. Filter by status (draft, unpaid, paid), customer and date. Returns id, ref, socid, date, total_ttc, status, lines.",
			getDesc:    "Get invoice by ID. Returns id, ref, socid, date, due date, totals, paye, status, lines.",
			createDesc: "Create invoice with lines. Required: customer_id. Optional: date, due_date, lines. Returns new invoice ID.",
			updateDesc: "Update invoice. Required: invoice_id. Only draft invoices can be modified.",
			deleteDesc: "Delete invoice by ID. Only draft invoices can be deleted.",
			listQuery: []QueryParam{
				limitQuery(100),
				{Arg: "status"},
				{Arg: "sortfield", Default: "t.datef"},
				{Arg: "sortorder", Default: "DESC"},
			},
			listFilter: ptr(DocumentFilter("invoices", "t.datef", false, "")),
			listParams: params(
				[]Param{limitParam(100), statusParam(StringParam, "draft, unpaid or paid")},
				rangeParams, windowParams,
			),
			createParams: []Param{
				{Name: "customer_id", Type: IntegerParam, Required: true, Description: "Customer ID"},
				{Name: "date", Type: StringParam, Description: "Invoice date (YYYY-MM-DD)"},
				{Name: "due_date", Type: StringParam, Description: "Payment due date (YYYY-MM-DD)"},
				linesParam,
			},
			updateParams: []Param{
				{Name: "date", Type: StringParam, Description: "New invoice date"},
				{Name: "due_date", Type: StringParam, Description: "New due date"},
			},
			aliases:     map[string]string{"customer_id": "socid"},
			lineAliases: map[string]string{"product_id": "fk_product"},
			rules:       PayloadRules{Required: []string{"socid"}},
		},
		{
			singular: "order", plural: "orders", path: "orders", idArg: "order_id",
			fields: OrderFields, ttl: Medium,
			listDesc:   "List orders. Filter by status, customer and date. Returns id, ref, socid, date, totals, status, lines.",
			getDesc:    "Get order by ID. Returns id, ref, socid, date, total_ht, total_ttc, status, lines.",
			createDesc: "Create order. Required: customer_id. Optional: date, lines. Returns new order ID.",
			updateDesc: "Update order. Required: order_id. Optional: date. Only draft orders can be modified.",
			deleteDesc: "Delete order by ID. Only draft orders can be deleted.",
			listQuery: []QueryParam{
				limitQuery(100),
				{Arg: "status"},
				{Arg: "sortfield", Default: "t.date_commande"},
				{Arg: "sortorder", Default: "DESC"},
			},
			listFilter: ptr(DocumentFilter("orders", "t.date_commande", false, "")),
			listParams: params(
				[]Param{limitParam(100), statusParam(IntegerParam, "Filter by status")},
				rangeParams, windowParams,
			),
			createParams: []Param{
				{Name: "customer_id", Type: IntegerParam, Required: true, Description: "Customer ID"},
				{Name: "date", Type: StringParam, Description: "Order date (YYYY-MM-DD)"},
				linesParam,
			},
			updateParams: []Param{
				{Name: "date", Type: StringParam, Description: "New order date (YYYY-MM-DD)"},
			},
			aliases:     map[string]string{"customer_id": "socid"},
			lineAliases: map[string]string{"product_id": "fk_product"},
			rules:       PayloadRules{Required: []string{"socid"}},
		},
		{
			singular: "contact", plural: "contacts", path: "contacts", idArg: "contact_id",
			fields: ContactFields, ttl: Medium,
			listDesc:   "List contacts. Returns id, firstname, lastname, email, phone, socid.",
			getDesc:    "Get contact by ID. Returns id, firstname, lastname, email, phone, socid.",
			createDesc: "Create contact. Required: firstname, lastname. Optional: email, phone, socid. Returns new contact ID.",
			updateDesc: "Update contact. Required: contact_id. Optional: firstname, lastname, email, phone.",
			deleteDesc: "Delete contact by ID. Cannot be undone.",
			listQuery:  []QueryParam{limitQuery(100)},
			listParams: []Param{limitParam(100)},
			createParams: []Param{
				{Name: "firstname", Type: StringParam, Required: true, Description: "First name"},
				{Name: "lastname", Type: StringParam, Required: true, Description: "Last name"},
				{Name: "email", Type: StringParam, Description: "Email address"},
				{Name: "phone", Type: StringParam, Description: "Phone number"},
				{Name: "socid", Type: IntegerParam, Description: "Linked customer ID"},
			},
			updateParams: []Param{
				{Name: "firstname", Type: StringParam, Description: "New first name"},
				{Name: "lastname", Type: StringParam, Description: "New last name"},
				{Name: "email", Type: StringParam, Description: "New email"},
				{Name: "phone", Type: StringParam, Description: "New phone"},
			},
			aliases: map[string]string{"customer_id": "socid"},
		},
		{
			singular: "project", plural: "projects", path: "projects", idArg: "project_id",
			fields: ProjectFields, ttl: Long,
			listDesc:   "List projects. Filter by status: 0=draft, 1=open, 2=closed. Returns id, ref, title, description, socid, status, dates.",
			getDesc:    "Get project by ID. Returns id, ref, title, description, socid, status, date_start, date_end.",
			createDesc: "Create project. Required: ref, title, socid. Optional: description, status. Returns new project ID.",
			updateDesc: "Update project. Required: project_id. Optional: title, description, status.",
			deleteDesc: "Delete project by ID. Fails if the project has linked documents.",
			listQuery:  []QueryParam{limitQuery(100), pageQuery, {Arg: "status"}},
			listParams: []Param{limitParam(100), pageParam, statusParam(IntegerParam, "0=draft, 1=open, 2=closed")},
			createParams: []Param{
				{Name: "title", Type: StringParam, Required: true, Description: "Project title"},
				{Name: "ref", Type: StringParam, Description: "Project reference"},
				{Name: "socid", Type: IntegerParam, Required: true, Description: "Customer ID"},
				{Name: "description", Type: StringParam, Description: "Project description"},
				{Name: "status", Type: IntegerParam, Description: "0=draft, 1=open"},
			},
			updateParams: []Param{
				{Name: "title", Type: StringParam, Description: "New title"},
				{Name: "description", Type: StringParam, Description: "New description"},
				{Name: "status", Type: IntegerParam, Description: "0=draft, 1=open, 2=closed"},
			},
			aliases: map[string]string{"title": "name", "customer_id": "socid"},
			rules: PayloadRules{
				Required: []string{"ref", "name", "socid"},
				NonEmpty: []string{"socid"},
				AutoRef:  true,
			},
		},
		{
			singular: "proposal", plural: "proposals", path: "proposals", idArg: "proposal_id",
			fields: ProposalFields, ttl: Medium,
			listDesc:   "List proposals. Filter by status: 0=draft, 1=validated, 2=signed, 3=refused. Returns id, ref, socid, totals, status, lines.",
			getDesc:    "Get proposal by ID. Returns id, ref, socid, date, fin_validite, totals, status, lines.",
			createDesc: "Create proposal. Required: customer_id. Optional: lines, date, duree_validite, project_id, notes. Returns new proposal ID.",
			updateDesc: "Update draft proposal. Required: proposal_id. Optional: duree_validite, note_public, note_private.",
			deleteDesc: "Delete proposal by ID. Only drafts can be deleted.",
			listQuery: []QueryParam{
				limitQuery(100),
				{Arg: "status"},
				{Arg: "sortfield", Default: "t.datep"},
				{Arg: "sortorder", Default: "DESC"},
			},
			listFilter: ptr(DocumentFilter("proposals", "t.datep", false, "")),
			listParams: params(
				[]Param{limitParam(100), statusParam(IntegerParam, "0=draft, 1=validated, 2=signed, 3=refused")},
				rangeParams, windowParams,
			),
			createParams: []Param{
				{Name: "customer_id", Type: IntegerParam, Required: true, Description: "Customer ID"},
				{Name: "date", Type: StringParam, Description: "Proposal date (YYYY-MM-DD)"},
				{Name: "duree_validite", Type: IntegerParam, Description: "Validity period in days"},
				{Name: "project_id", Type: IntegerParam, Description: "Linked project ID"},
				{Name: "note_public", Type: StringParam, Description: "Public note"},
				{Name: "note_private", Type: StringParam, Description: "Private note"},
				linesParam,
			},
			updateParams: []Param{
				{Name: "duree_validite", Type: IntegerParam, Description: "Validity period in days"},
				{Name: "note_public", Type: StringParam, Description: "Public note"},
				{Name: "note_private", Type: StringParam, Description: "Private note"},
			},
			aliases:     map[string]string{"customer_id": "socid", "project_id": "fk_project"},
			lineAliases: map[string]string{"product_id": "fk_product"},
			rules:       PayloadRules{Required: []string{"socid"}},
		},
	}
}

func ptr[T any](v T) *T { return &v }

func searchDescriptor(name, desc, path, arg, argDesc string, fields []string, ttl time.Duration, filter FilterFunc, extra ...QueryParam) Descriptor {
	return Descriptor{
		Name:        name,
		Description: desc,
		Target: CallTarget{
			Name:   name,
			Method: http.MethodGet,
			Path:   path,
			Query:  append([]QueryParam{limitQuery(20)}, extra...),
			Filter: &filter,
		},
		Cacheable:      true,
		TTL:            ttl,
		ResponseFields: fields,
		Paginated:      true,
		DefaultLimit:   20,
		Result:         ResultList,
		Params: []Param{
			{Name: arg, Type: StringParam, Required: true, Description: argDesc},
			limitParam(20),
		},
	}
}

func customerDocuments(name, desc, path, dateColumn, statusColumn string, fields []string, statusType ParamType) Descriptor {
	query := []QueryParam{
		limitQuery(10),
		{Arg: "sortfield", Default: dateColumn, Fixed: true},
		{Arg: "sortorder", Default: "DESC", Fixed: true},
	}
	if statusColumn == "" {
		query = append(query, QueryParam{Arg: "status"})
	}
	return Descriptor{
		Name:        name,
		Description: desc,
		Target: CallTarget{
			Name:   name,
			Method: http.MethodGet,
			Path:   path,
			Query:  query,
			Filter: ptr(DocumentFilter(path, dateColumn, true, statusColumn)),
		},
		Cacheable:      true,
		TTL:            Medium,
		ResponseFields: fields,
		Paginated:      true,
		DefaultLimit:   10,
		Result:         ResultList,
		Params: params(
			[]Param{
				{Name: "socid", Type: IntegerParam, Required: true, Description: "Customer ID"},
				limitParam(10),
				statusParam(statusType, "Filter by status"),
			},
			windowParams,
		),
	}
}

func lineDescriptors(parent, path string) []Descriptor {
	parentID := parent + "_id"
	parentParam := Param{Name: parentID, Type: IntegerParam, Required: true, Description: titleCase(parent) + " ID"}
	lineParam := Param{Name: "line_id", Type: IntegerParam, Required: true, Description: "Line ID"}
	lineFields := []Param{
		{Name: "desc", Type: StringParam, Description: "Line description"},
		{Name: "qty", Type: NumberParam, Description: "Quantity"},
		{Name: "subprice", Type: NumberParam, Description: "Unit price excluding tax"},
		{Name: "product_id", Type: IntegerParam, Description: "Linked product ID"},
		{Name: "product_type", Type: IntegerParam, Description: "0=product, 1=service"},
		{Name: "tva_tx", Type: NumberParam, Description: "VAT rate"},
		{Name: "remise_percent", Type: NumberParam, Description: "Discount percentage"},
	}
	aliases := map[string]string{"product_id": "fk_product", "description": "desc"}
	items := path + "/{" + parentID + "}/lines"

	add := "add_" + parent + "_line"
	update := "update_" + parent + "_line"
	del := "delete_" + parent + "_line"
	return []Descriptor{
		{
			Name:        add,
			Description: "Add a line to a draft " + parent + ". Required: " + parentID + ", desc, qty, subprice.",
			Target: CallTarget{
				Name: add, Method: http.MethodPost, Path: items,
				Body: ArgsBody, Aliases: aliases,
				Rules: PayloadRules{Required: []string{"desc", "qty", "subprice"}, NonNegative: []string{"qty", "subprice"}},
			},
			Invalidates: invalidation[add],
			Params:      params([]Param{parentParam}, lineFields, []Param{dataParam}),
		},
		{
			Name:        update,
			Description: "Update a line of a draft " + parent + ". Required: " + parentID + ", line_id.",
			Target: CallTarget{
				Name: update, Method: http.MethodPut, Path: items + "/{line_id}",
				Body: ArgsBody, Aliases: aliases,
			},
			Invalidates: invalidation[update],
			Params:      params([]Param{parentParam, lineParam}, lineFields, []Param{dataParam}),
		},
		{
			Name:        del,
			Description: "Delete a line of a draft " + parent + ". Required: " + parentID + ", line_id.",
			Target: CallTarget{
				Name: del, Method: http.MethodDelete, Path: items + "/{line_id}",
			},
			Invalidates: invalidation[del],
			Params:      []Param{parentParam, lineParam},
		},
	}
}

func workflowDescriptors() []Descriptor {
	invoiceID := Param{Name: "invoice_id", Type: IntegerParam, Required: true, Description: "Invoice ID"}
	proposalID := Param{Name: "proposal_id", Type: IntegerParam, Required: true, Description: "Proposal ID"}
	return []Descriptor{
		{
			Name:        "validate_invoice",
			Description: "Validate a draft invoice. Required: invoice_id. Optional: warehouse_id for stock movements.",
			Target: CallTarget{
				Name: "validate_invoice", Method: http.MethodPost, Path: "invoices/{invoice_id}/validate",
				Body: FixedBody,
				Fields: []BodyField{
					{Key: "idwarehouse", Arg: "warehouse_id", Default: 0},
					{Key: "not_trigger", Arg: "not_trigger", Default: 0},
				},
			},
			Invalidates: invalidation["validate_invoice"],
			Params: []Param{
				invoiceID,
				{Name: "warehouse_id", Type: IntegerParam, Default: 0, Description: "Warehouse ID for stock movements"},
			},
		},
		{
			Name:        "validate_proposal",
			Description: "Validate a draft proposal. Required: proposal_id. Status goes from draft (0) to validated (1).",
			Target: CallTarget{
				Name: "validate_proposal", Method: http.MethodPost, Path: "proposals/{proposal_id}/validate",
				Body:   FixedBody,
				Fields: []BodyField{{Key: "notrigger", Arg: "not_trigger", Default: 0}},
			},
			Invalidates: invalidation["validate_proposal"],
			Params:      []Param{proposalID},
		},
		{
			Name:        "close_proposal",
			Description: "Close a proposal as signed (2) or refused (3). Required: proposal_id, status. Optional: note.",
			Target: CallTarget{
				Name: "close_proposal", Method: http.MethodPost, Path: "proposals/{proposal_id}/close",
				Body: FixedBody,
				Fields: []BodyField{
					{Key: "status", Arg: "status", Required: true},
					{Key: "note_private", Arg: "note", Default: ""},
				},
				Rules: PayloadRules{Enums: map[string][]any{"status": {2, 3}}},
			},
			Invalidates: invalidation["close_proposal"],
			Params: []Param{
				proposalID,
				{Name: "status", Type: IntegerParam, Required: true, Enum: []string{"2", "3"}, Description: "2=signed, 3=refused"},
				{Name: "note", Type: StringParam, Description: "Closing note"},
			},
		},
		{
			Name:        "set_proposal_to_draft",
			Description: "Revert a proposal to draft. Required: proposal_id.",
			Target: CallTarget{
				Name: "set_proposal_to_draft", Method: http.MethodPost, Path: "proposals/{proposal_id}/settodraft",
				Body: FixedBody,
			},
			Invalidates: invalidation["set_proposal_to_draft"],
			Params:      []Param{proposalID},
		},
	}
}

func defaultDescriptors() []Descriptor {
	status := CallTarget{Name: "get_status", Method: http.MethodGet, Path: "status", Status: true}
	out := []Descriptor{
		{
			Name:        "test_connection",
			Description: "Test the API connection. Returns version info when reachable.",
			Target:      status,
			Cacheable:   true,
			TTL:         Short,
		},
		{
			Name:        "get_status",
			Description: "Get system status. Returns dolibarr_version and api_version.",
			Target:      status,
			Cacheable:   true,
			TTL:         Short,
		},
		searchDescriptor("search_products_by_ref",
			"Search products by reference prefix. Returns id, ref, label, price, status. Max 20 results.",
			"products", "ref_prefix", "Reference prefix to match (PROD matches PROD001)", ProductFields, Long,
			LikePrefix("products", "ref_prefix", "t.ref")),
		searchDescriptor("search_products_by_label",
			"Search products by label. Returns id, ref, label, price, status. Partial match.",
			"products", "query", "Product name to search (partial match)", ProductFields, Long,
			LikeAny("products", "query", "t.label")),
		searchDescriptor("search_customers",
			"Search customers by name or alias. Returns id, name, email, phone, status. Partial match.",
			"thirdparties", "query", "Customer name to search (partial match)", CustomerFields, Medium,
			LikeAny("thirdparties", "query", "t.nom", "t.name_alias")),
		searchDescriptor("search_projects",
			"Search projects by ref or title. Returns id, ref, title, status, socid. Partial match.",
			"projects", "query", "Project ref or title to search", ProjectFields, Long,
			LikeAny("projects", "query", "t.ref", "t.title")),
		searchDescriptor("search_proposals",
			"Search proposals by ref or customer name. Returns id, ref, socid, total_ttc, status.",
			"proposals", "query", "Proposal ref or customer name to search", ProposalFields, Medium,
			LikeAny("proposals", "query", "t.ref", "s.nom"),
			QueryParam{Arg: "sortfield", Default: "t.datep", Fixed: true},
			QueryParam{Arg: "sortorder", Default: "DESC", Fixed: true}),
		{
			Name:        "resolve_product_ref",
			Description: "Get a product by exact reference. Returns status ok, not_found or ambiguous.",
			Target: CallTarget{
				Name:   "resolve_product_ref",
				Method: http.MethodGet,
				Path:   "products",
				Query:  []QueryParam{{Arg: "limit", Default: 2, Fixed: true}},
				Filter: ptr(LikeExact("products", "ref", "t.ref")),
			},
			Cacheable:      true,
			TTL:            Long,
			ResponseFields: ProductFields,
			Result:         ResultResolveRef,
			Params:         []Param{{Name: "ref", Type: StringParam, Required: true, Description: "Exact product reference"}},
		},
		customerDocuments("get_customer_invoices",
			"Get the latest invoices of one customer, newest first. Optional year/month window.",
			"invoices", "t.datef", "", InvoiceFields, StringParam),
		customerDocuments("get_customer_orders",
			"Get the latest orders of one customer, newest first. Optional year/month window.",
			"orders", "t.date_commande", "", OrderFields, IntegerParam),
		customerDocuments("get_customer_proposals",
			"Get the latest proposals of one customer, newest first. Optional status and year/month window.",
			"proposals", "t.datep", "t.fk_statut", ProposalFields, IntegerParam),
	}

	for _, e := range entities() {
		out = append(out, e.descriptors()...)
	}
	out = append(out, lineDescriptors("invoice", "invoices")...)
	out = append(out, lineDescriptors("proposal", "proposals")...)
	out = append(out, workflowDescriptors()...)
	out = append(out, Descriptor{
		Name:        "dolibarr_raw_api",
		Description: "Direct API call. Use only if no specific tool exists. Required: method (GET/POST/PUT/DELETE), endpoint. Optional: params, data.",
		Target:      CallTarget{Name: "dolibarr_raw_api", Raw: true},
		Invalidates: invalidation["dolibarr_raw_api"],
		Params: []Param{
			{Name: "method", Type: StringParam, Required: true, Enum: []string{"GET", "POST", "PUT", "DELETE"}, Description: "HTTP method"},
			{Name: "endpoint", Type: StringParam, Required: true, Description: "API endpoint, e.g. thirdparties or invoices/12"},
			{Name: "params", Type: ObjectParam, Description: "Query parameters"},
			{Name: "data", Type: ObjectParam, Description: "JSON body"},
		},
	})
	return out
}
