package core

// validation.go checks mapped CSV data against a template's field rules.
//
// Validation happens at two levels:
//  1. Mapping gate: every required field must be mapped before rows are checked
//  2. Row validation: each mapped cell is checked for presence (required
//     fields) and then for type format
//
// All errors are collected. Nothing short-circuits on the first bad cell so
// the user sees the complete error set in one pass.

import (
	"fmt"
	"strings"
)

// RowValidator validates rows against a template's fields and a mapping set.
type RowValidator struct {
	fields []TemplateField
	source map[string]string // field ID -> source column
}

// NewRowValidator creates a validator for the given fields and mappings.
func NewRowValidator(fields []TemplateField, mappings Mappings) *RowValidator {
	return &RowValidator{
		fields: fields,
		source: mappings.Lookup(),
	}
}

// ValidateRow validates a single row. rowNum is the 1-based row index
// reported in the errors. Fields are checked in template order.
func (v *RowValidator) ValidateRow(rowNum int, row Row) []ValidationError {
	var errs []ValidationError

	for _, field := range v.fields {
		col, ok := v.source[field.ID]
		if !ok || col == "" {
			// Unmapped fields are skipped. Unmapped required fields are
			// caught by CheckRequiredMapped before validation starts.
			continue
		}

		value := row[col]

		if field.Required && strings.TrimSpace(value) == "" {
			errs = append(errs, ValidationError{
				Row:     rowNum,
				Field:   field.DisplayName,
				Message: fmt.Sprintf("%s is required", field.DisplayName),
				Value:   "",
			})
			continue
		}

		if value != "" && !IsValid(value, field.Type) {
			errs = append(errs, ValidationError{
				Row:     rowNum,
				Field:   field.DisplayName,
				Message: fmt.Sprintf("Invalid %s format", field.Type),
				Value:   value,
			})
		}
	}

	return errs
}

// Validate checks every row (outer) and field (inner) and returns all errors
// in that order. Inputs are not modified.
func Validate(rows []Row, fields []TemplateField, mappings Mappings) []ValidationError {
	v := NewRowValidator(fields, mappings)

	var errs []ValidationError
	for i, row := range rows {
		errs = append(errs, v.ValidateRow(i+1, row)...)
	}
	return errs
}

// UnmappedRequired returns the required fields that have no mapping.
func UnmappedRequired(fields []TemplateField, mappings Mappings) []TemplateField {
	source := mappings.Lookup()

	var missing []TemplateField
	for _, f := range fields {
		if f.Required && source[f.ID] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// CheckRequiredMapped returns a *PreconditionError if any required field is unmapped.
func CheckRequiredMapped(fields []TemplateField, mappings Mappings) error {
	missing := UnmappedRequired(fields, mappings)
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = f.DisplayName
	}
	return &PreconditionError{
		Reason:  "required field not mapped",
		Missing: names,
	}
}

// CheckMappings verifies that every mapping references a known header and a
// known field, and that no field is mapped twice.
func CheckMappings(headers []string, fields []TemplateField, mappings Mappings) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	fieldIDs := make(map[string]bool, len(fields))
	for _, f := range fields {
		fieldIDs[f.ID] = true
	}

	seen := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		if !fieldIDs[m.TargetFieldID] {
			return &PreconditionError{Reason: fmt.Sprintf("unknown field %q", m.TargetFieldID)}
		}
		if !known[m.SourceColumn] {
			return &PreconditionError{Reason: fmt.Sprintf("unknown column %q", m.SourceColumn)}
		}
		if seen[m.TargetFieldID] {
			return &PreconditionError{Reason: fmt.Sprintf("field %q is mapped more than once", m.TargetFieldID)}
		}
		seen[m.TargetFieldID] = true
	}
	return nil
}
