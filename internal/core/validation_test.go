package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	fields := []TemplateField{
		field("f-name", "name", "Name", FieldText, true),
		field("f-email", "email", "Email", FieldEmail, true),
		field("f-amt", "amount", "Amount", FieldNumber, false),
	}
	mappings := Mappings{
		{SourceColumn: "Customer", TargetFieldID: "f-name"},
		{SourceColumn: "Mail", TargetFieldID: "f-email"},
		{SourceColumn: "Total", TargetFieldID: "f-amt"},
	}

	tests := []struct {
		name string
		rows []Row
		want []ValidationError
	}{
		{
			name: "all valid",
			rows: []Row{
				{"Customer": "Ann", "Mail": "ann@x.io", "Total": "12.5"},
				{"Customer": "Bob", "Mail": "bob@x.io", "Total": ""},
			},
			want: nil,
		},
		{
			name: "required blank suppresses type check",
			rows: []Row{
				{"Customer": "Ann", "Mail": "   ", "Total": "1"},
			},
			want: []ValidationError{
				{Row: 1, Field: "Email", Message: "Email is required", Value: ""},
			},
		},
		{
			name: "missing cell reads as empty",
			rows: []Row{
				{"Mail": "ann@x.io"},
			},
			want: []ValidationError{
				{Row: 1, Field: "Name", Message: "Name is required", Value: ""},
			},
		},
		{
			name: "invalid formats keep raw value",
			rows: []Row{
				{"Customer": "Ann", "Mail": "not-an-email", "Total": "$5"},
			},
			want: []ValidationError{
				{Row: 1, Field: "Email", Message: "Invalid email format", Value: "not-an-email"},
				{Row: 1, Field: "Amount", Message: "Invalid number format", Value: "$5"},
			},
		},
		{
			name: "rows outer fields inner",
			rows: []Row{
				{"Customer": "", "Mail": "bad", "Total": "x"},
				{"Customer": "", "Mail": "ok@x.io", "Total": "1"},
			},
			want: []ValidationError{
				{Row: 1, Field: "Name", Message: "Name is required", Value: ""},
				{Row: 1, Field: "Email", Message: "Invalid email format", Value: "bad"},
				{Row: 1, Field: "Amount", Message: "Invalid number format", Value: "x"},
				{Row: 2, Field: "Name", Message: "Name is required", Value: ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.rows, fields, mappings)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	fields := []TemplateField{
		field("f1", "name", "Name", FieldText, true),
		field("f2", "amount", "Amount", FieldNumber, true),
	}
	mappings := Mappings{
		{SourceColumn: "Name", TargetFieldID: "f1"},
		{SourceColumn: "Amount", TargetFieldID: "f2"},
	}

	tests := []struct {
		name  string
		input string
	}{
		{name: "valid", input: "Name,Amount\nAlice,100\n"},
		{name: "invalid", input: "Name,Amount\n,\nBob,abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseString(tt.input)
			require.NoError(t, err)

			first := Validate(parsed.Data, fields, mappings)
			second := Validate(parsed.Data, fields, mappings)
			assert.Equal(t, first, second)
		})
	}
}

func TestValidate_SeparatorOnlyRow(t *testing.T) {
	fields := []TemplateField{
		field("f1", "name", "Name", FieldText, true),
		field("f2", "amount", "Amount", FieldNumber, true),
	}
	mappings := Mappings{
		{SourceColumn: "Name", TargetFieldID: "f1"},
		{SourceColumn: "Amount", TargetFieldID: "f2"},
	}

	parsed, err := ParseString("Name,Amount\n,\nBob,abc\n")
	require.NoError(t, err)
	require.Equal(t, 2, parsed.RowCount)

	assert.Equal(t, []ValidationError{
		{Row: 1, Field: "Name", Message: "Name is required", Value: ""},
		{Row: 1, Field: "Amount", Message: "Amount is required", Value: ""},
		{Row: 2, Field: "Amount", Message: "Invalid number format", Value: "abc"},
	}, Validate(parsed.Data, fields, mappings))
}

func TestValidate_UnmappedFieldsSkipped(t *testing.T) {
	fields := []TemplateField{
		field("f-name", "name", "Name", FieldText, true),
		field("f-date", "date", "Date", FieldDate, false),
	}
	rows := []Row{{"A": "", "B": "garbage"}}

	got := Validate(rows, fields, nil)
	assert.Empty(t, got)
}

func TestValidate_ErrorCountBound(t *testing.T) {
	fields := []TemplateField{
		field("a", "a", "A", FieldNumber, true),
		field("b", "b", "B", FieldEmail, true),
	}
	mappings := Mappings{{SourceColumn: "x", TargetFieldID: "a"}, {SourceColumn: "y", TargetFieldID: "b"}}
	rows := []Row{{"x": "q", "y": "q"}, {"x": "", "y": ""}, {"x": "1", "y": "a@b.co"}}

	got := Validate(rows, fields, mappings)
	assert.LessOrEqual(t, len(got), len(rows)*len(fields))
	assert.Len(t, got, 4)
	for _, e := range got {
		assert.GreaterOrEqual(t, e.Row, 1)
		assert.LessOrEqual(t, e.Row, len(rows))
	}
}

func TestCheckRequiredMapped(t *testing.T) {
	fields := []TemplateField{
		field("f1", "name", "Name", FieldText, true),
		field("f2", "email", "Email", FieldEmail, true),
		field("f3", "notes", "Notes", FieldText, false),
	}

	t.Run("all required mapped", func(t *testing.T) {
		m := Mappings{{SourceColumn: "n", TargetFieldID: "f1"}, {SourceColumn: "e", TargetFieldID: "f2"}}
		assert.NoError(t, CheckRequiredMapped(fields, m))
	})

	t.Run("lists missing display names", func(t *testing.T) {
		m := Mappings{{SourceColumn: "x", TargetFieldID: "f3"}}
		err := CheckRequiredMapped(fields, m)

		var pe *PreconditionError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, []string{"Name", "Email"}, pe.Missing)
		assert.Equal(t, "MAP001", MapError(err).Code)
	})

	t.Run("empty column does not count", func(t *testing.T) {
		m := Mappings{{SourceColumn: "", TargetFieldID: "f1"}, {SourceColumn: "e", TargetFieldID: "f2"}}
		missing := UnmappedRequired(fields, m)
		require.Len(t, missing, 1)
		assert.Equal(t, "f1", missing[0].ID)
	})
}

func TestCheckMappings(t *testing.T) {
	headers := []string{"A", "B"}
	fields := []TemplateField{
		field("f1", "one", "One", FieldText, false),
		field("f2", "two", "Two", FieldText, false),
	}

	tests := []struct {
		name     string
		mappings Mappings
		wantCode string
	}{
		{name: "valid", mappings: Mappings{{SourceColumn: "A", TargetFieldID: "f1"}}},
		{name: "column reused across fields", mappings: Mappings{{SourceColumn: "A", TargetFieldID: "f1"}, {SourceColumn: "A", TargetFieldID: "f2"}}},
		{name: "unknown column", mappings: Mappings{{SourceColumn: "C", TargetFieldID: "f1"}}, wantCode: "MAP002"},
		{name: "unknown field", mappings: Mappings{{SourceColumn: "A", TargetFieldID: "zz"}}, wantCode: "MAP002"},
		{name: "field twice", mappings: Mappings{{SourceColumn: "A", TargetFieldID: "f1"}, {SourceColumn: "B", TargetFieldID: "f1"}}, wantCode: "MAP003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMappings(headers, fields, tt.mappings)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsPrecondition(err))
			assert.Equal(t, tt.wantCode, MapError(err).Code)
		})
	}
}

func TestMappings_Set(t *testing.T) {
	m := Mappings{{SourceColumn: "A", TargetFieldID: "f1"}, {SourceColumn: "B", TargetFieldID: "f2"}}

	replaced := m.Set("f1", "C")
	assert.Equal(t, "C", replaced.SourceFor("f1"))
	assert.Len(t, replaced, 2)
	assert.Equal(t, "A", m.SourceFor("f1"), "Set must not modify the receiver")

	removed := m.Set("f2", "")
	assert.Equal(t, "", removed.SourceFor("f2"))
	assert.Len(t, removed, 1)

	added := m.Set("f3", "A")
	assert.Len(t, added, 3)
	assert.Equal(t, map[string]string{"f1": "A", "f2": "B", "f3": "A"}, added.Lookup())
}
