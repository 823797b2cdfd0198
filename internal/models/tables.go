package models

/*
TableSpec describes what the data layer is allowed to touch for one table.
Column names outside Updatable never reach a SQL statement; Unique lists the
columns guarded by a database UNIQUE constraint (the create pre-check queries
the same set).
*/
type TableSpec struct {
	Name      string
	Updatable map[string]bool
	Unique    []string
}

func (s TableSpec) UpdatableColumn(col string) bool { return s.Updatable[col] }

const (
	TableCustomers = "customers"
	TableLeads     = "leads"
	TableDeals     = "deals"
	TableProposals = "proposals"
	TableInvoices  = "invoices"
)

var tableRegistry = map[string]TableSpec{
	TableCustomers: {
		Name:      TableCustomers,
		Updatable: columnSet("name", "email", "phone", "company", "address", "status", "notes", "assigned_to"),
		Unique:    []string{"email"},
	},
	TableLeads: {
		Name:      TableLeads,
		Updatable: columnSet("name", "email", "phone", "company", "status", "source", "score", "notes"),
		Unique:    []string{"email"},
	},
	TableDeals: {
		Name:      TableDeals,
		Updatable: columnSet("customer_id", "title", "description", "value", "stage", "probability", "expected_close_date"),
	},
	TableProposals: {
		Name:      TableProposals,
		Updatable: columnSet("deal_id", "title", "content", "amount", "status", "valid_until"),
	},
	TableInvoices: {
		Name:      TableInvoices,
		Updatable: columnSet("customer_id", "deal_id", "invoice_number", "amount", "tax_amount", "total_amount", "status", "due_date", "payment_terms"),
		Unique:    []string{"invoice_number"},
	},
}

// LookupTable returns the spec for a registered table.
func LookupTable(name string) (TableSpec, bool) {
	spec, ok := tableRegistry[name]
	return spec, ok
}

// TableNames returns all registered table names.
func TableNames() []string {
	names := make([]string, 0, len(tableRegistry))
	for name := range tableRegistry {
		names = append(names, name)
	}
	return names
}

func columnSet(cols ...string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}
