package schema

import "github.com/JonMunkholm/csvstandard/internal/core"

// Starter templates seeded into an empty store. IDs and slugs are fixed so
// shared upload links survive restarts.

// ContactsFields defines a basic contact list.
var ContactsFields = []core.TemplateField{
	{ID: "7b1f0c52-4d0e-4a51-9a3e-0c1d7f0e2a01", Name: "name", DisplayName: "Name", Type: core.FieldText, Required: true},
	{ID: "7b1f0c52-4d0e-4a51-9a3e-0c1d7f0e2a02", Name: "email", DisplayName: "Email", Type: core.FieldEmail, Required: true},
	{ID: "7b1f0c52-4d0e-4a51-9a3e-0c1d7f0e2a03", Name: "phone", DisplayName: "Phone", Type: core.FieldText},
	{ID: "7b1f0c52-4d0e-4a51-9a3e-0c1d7f0e2a04", Name: "company", DisplayName: "Company", Type: core.FieldText},
}

// CustomerFields defines customer balances exported from an ERP.
var CustomerFields = []core.TemplateField{
	{ID: "1c9d6a8e-2f34-4b7a-8e61-5d2a9c3b4f01", Name: "customer_id", DisplayName: "Customer ID", Type: core.FieldText, Required: true},
	{ID: "1c9d6a8e-2f34-4b7a-8e61-5d2a9c3b4f02", Name: "company_name", DisplayName: "Company Name", Type: core.FieldText, Required: true},
	{ID: "1c9d6a8e-2f34-4b7a-8e61-5d2a9c3b4f03", Name: "balance", DisplayName: "Balance", Type: core.FieldNumber},
	{ID: "1c9d6a8e-2f34-4b7a-8e61-5d2a9c3b4f04", Name: "overdue_balance", DisplayName: "Overdue Balance", Type: core.FieldNumber},
	{ID: "1c9d6a8e-2f34-4b7a-8e61-5d2a9c3b4f05", Name: "days_overdue", DisplayName: "Days Overdue", Type: core.FieldNumber},
	{ID: "1c9d6a8e-2f34-4b7a-8e61-5d2a9c3b4f06", Name: "active", DisplayName: "Active", Type: core.FieldBoolean},
}

// TransactionFields defines invoice or order lines.
var TransactionFields = []core.TemplateField{
	{ID: "e4a2b7c9-6d15-4f3e-a8b0-9c7d2e1f6a01", Name: "document_number", DisplayName: "Document Number", Type: core.FieldText, Required: true},
	{ID: "e4a2b7c9-6d15-4f3e-a8b0-9c7d2e1f6a02", Name: "date", DisplayName: "Date", Type: core.FieldDate, Required: true},
	{ID: "e4a2b7c9-6d15-4f3e-a8b0-9c7d2e1f6a03", Name: "customer", DisplayName: "Customer", Type: core.FieldText},
	{ID: "e4a2b7c9-6d15-4f3e-a8b0-9c7d2e1f6a04", Name: "item", DisplayName: "Item", Type: core.FieldText},
	{ID: "e4a2b7c9-6d15-4f3e-a8b0-9c7d2e1f6a05", Name: "quantity", DisplayName: "Quantity", Type: core.FieldNumber},
	{ID: "e4a2b7c9-6d15-4f3e-a8b0-9c7d2e1f6a06", Name: "amount", DisplayName: "Amount", Type: core.FieldNumber, Required: true},
	{ID: "e4a2b7c9-6d15-4f3e-a8b0-9c7d2e1f6a07", Name: "memo", DisplayName: "Memo", Type: core.FieldText},
}

// Builtin returns fresh copies of the starter templates.
func Builtin() []core.Template {
	return []core.Template{
		builtin("0f5e3a1d-8c2b-4e7f-9a6d-1b3c5e7f9a01", "Contacts", "contacts",
			"A simple contact list. **Name** and **Email** are required.", ContactsFields),
		builtin("0f5e3a1d-8c2b-4e7f-9a6d-1b3c5e7f9a02", "Customers", "customers",
			"Customer balances. Amounts must be plain numbers without currency symbols.", CustomerFields),
		builtin("0f5e3a1d-8c2b-4e7f-9a6d-1b3c5e7f9a03", "Transactions", "transactions",
			"Invoice and order lines, one row per line.", TransactionFields),
	}
}

func builtin(id, name, slug, desc string, fields []core.TemplateField) core.Template {
	return core.Template{
		ID:          id,
		Name:        name,
		Slug:        slug,
		Description: desc,
		Fields:      append([]core.TemplateField(nil), fields...),
	}
}
