package schema

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

const customersYAML = `
name: Customer List
description: Monthly <b>customer</b> export
fields:
  - displayName: Customer Name
    type: text
    required: true
  - displayName: E-mail Address
    type: email
    required: true
  - name: signup
    displayName: Signup Date
    type: date
destination:
  spreadsheetId: sheet-123
  sheetName: Customers
`

const customersJSON = `{
  "name": "Customer List",
  "slug": "customer-list",
  "fields": [
    {"id": "f1", "name": "name", "displayName": "Name", "type": "text", "required": true},
    {"id": "f2", "name": "amount", "displayName": "Amount", "type": "number"}
  ]
}`

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"t.yaml", FormatYAML},
		{"dir/T.YML", FormatYAML},
		{"t.json", FormatJSON},
		{"template", FormatJSON},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFromPath(tt.path), tt.path)
	}
}

func TestLoad_YAML(t *testing.T) {
	tmpl, err := Load([]byte(customersYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "Customer List", tmpl.Name)
	assert.Equal(t, "Monthly <b>customer</b> export", tmpl.Description, "description keeps markdown source")
	assert.NotEmpty(t, tmpl.ID)
	assert.Regexp(t, regexp.MustCompile(`^customer-list-[a-z0-9]{6}$`), tmpl.Slug)

	require.Len(t, tmpl.Fields, 3)
	assert.Equal(t, "customer_name", tmpl.Fields[0].Name)
	assert.Equal(t, "e_mail_address", tmpl.Fields[1].Name)
	assert.Equal(t, "signup", tmpl.Fields[2].Name)
	for _, f := range tmpl.Fields {
		assert.NotEmpty(t, f.ID)
	}

	require.NotNil(t, tmpl.Destination)
	assert.Equal(t, core.ProviderGoogleSheets, tmpl.Destination.Provider)
	assert.Equal(t, "sheet-123", tmpl.Destination.SpreadsheetID)
}

func TestLoad_JSONKeepsIdentity(t *testing.T) {
	tmpl, err := Load([]byte(customersJSON), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "customer-list", tmpl.Slug)
	assert.Equal(t, "f1", tmpl.Fields[0].ID)
	assert.Equal(t, core.FieldNumber, tmpl.Fields[1].Type)
	assert.Nil(t, tmpl.Destination)
}

func TestLoad_StructuralErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantField string
	}{
		{
			name:      "missing fields",
			input:     `{"name": "x"}`,
			wantField: "(root)",
		},
		{
			name:      "empty fields",
			input:     `{"name": "x", "fields": []}`,
			wantField: "fields",
		},
		{
			name:      "unknown type",
			input:     `{"name": "x", "fields": [{"displayName": "A", "type": "currency"}]}`,
			wantField: "fields.0.type",
		},
		{
			name:      "bad slug",
			input:     `{"name": "x", "slug": "Not A Slug", "fields": [{"displayName": "A", "type": "text"}]}`,
			wantField: "slug",
		},
		{
			name:      "unknown property",
			input:     `{"name": "x", "colour": "red", "fields": [{"displayName": "A", "type": "text"}]}`,
			wantField: "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.input), FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidTemplate))
			assert.Equal(t, "TPL002", core.MapError(err).Code)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			var fields []string
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load([]byte(`{"name":`), FormatJSON)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidTemplate))

	_, err = Load([]byte("name: [unclosed"), FormatYAML)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidTemplate))
}

func TestValidate(t *testing.T) {
	base := func() *core.Template {
		return &core.Template{
			Name: "T",
			Fields: []core.TemplateField{
				{ID: "a", Name: "one", DisplayName: "One", Type: core.FieldText},
				{ID: "b", Name: "two", DisplayName: "Two", Type: core.FieldNumber},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*core.Template)
		want   []string
	}{
		{name: "valid", mutate: func(*core.Template) {}},
		{
			name:   "duplicate field id",
			mutate: func(t *core.Template) { t.Fields[1].ID = "a" },
			want:   []string{"Fields[1].ID"},
		},
		{
			name:   "duplicate field name",
			mutate: func(t *core.Template) { t.Fields[1].Name = "one" },
			want:   []string{"Fields[1].Name"},
		},
		{
			name: "missing name and bad type",
			mutate: func(t *core.Template) {
				t.Name = ""
				t.Fields[0].Type = "money"
			},
			want: []string{"Name", "Fields[0].Type"},
		},
		{
			name:   "no fields",
			mutate: func(t *core.Template) { t.Fields = nil },
			want:   []string{"Fields"},
		},
		{
			name:   "destination without spreadsheet",
			mutate: func(t *core.Template) { t.Destination = &core.SheetConnection{Provider: core.ProviderGoogleSheets} },
			want:   []string{"Destination.SpreadsheetID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := base()
			tt.mutate(tmpl)
			err := Validate(tmpl)
			if len(tt.want) == 0 {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			var got []string
			for _, fe := range verr.Errors {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(err.Error(), "invalid template: "))
		})
	}
}

func TestNormalize(t *testing.T) {
	tmpl := &core.Template{
		Name:        "  <script>alert(1)</script>Sales &amp; Leads ",
		Description: "  keep *markdown*  ",
		Fields: []core.TemplateField{
			{DisplayName: "<i>Deal</i> Size ($)", Description: "<p>USD</p>"},
			{ID: "keep", Name: "custom", DisplayName: "Owner"},
		},
		Destination: &core.SheetConnection{SpreadsheetID: " abc "},
	}

	Normalize(tmpl)

	assert.Equal(t, "Sales & Leads", tmpl.Name)
	assert.Equal(t, "keep *markdown*", tmpl.Description)
	assert.Regexp(t, `^sales-leads-[a-z0-9]{6}$`, tmpl.Slug)
	assert.Equal(t, "Deal Size ($)", tmpl.Fields[0].DisplayName)
	assert.Equal(t, "deal_size", tmpl.Fields[0].Name)
	assert.Equal(t, "USD", tmpl.Fields[0].Description)
	assert.Equal(t, "keep", tmpl.Fields[1].ID)
	assert.Equal(t, "custom", tmpl.Fields[1].Name)
	assert.Equal(t, core.ProviderGoogleSheets, tmpl.Destination.Provider)
	assert.Equal(t, "abc", tmpl.Destination.SpreadsheetID)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		base string
	}{
		{"Customer List", "customer-list"},
		{"  --Q3 Report!! 2024--", "q3-report-2024"},
		{strings.Repeat("ab ", 30), strings.TrimRight(strings.Repeat("ab-", 17)[:50], "-")},
	}
	for _, tt := range tests {
		got := Slugify(tt.name)
		require.True(t, strings.HasPrefix(got, tt.base+"-"), "Slugify(%q) = %q", tt.name, got)
		assert.Len(t, strings.TrimPrefix(got, tt.base+"-"), slugSuffixLen)
	}

	assert.Regexp(t, `^[a-z0-9]{6}$`, Slugify("!!!"))
	assert.NotEqual(t, Slugify("x"), Slugify("x"))
}

func TestMachineName(t *testing.T) {
	assert.Equal(t, "first_name", MachineName("First Name"))
	assert.Equal(t, "e_mail", MachineName("  E-Mail "))
	assert.Equal(t, "", MachineName("***"))
}

func TestRenderDescription(t *testing.T) {
	html, err := RenderDescription("Upload your **customers**.\n\n<script>alert(1)</script>\n\n[docs](https://example.com)")
	require.NoError(t, err)

	assert.Contains(t, html, "<strong>customers</strong>")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "nofollow")

	empty, err := RenderDescription("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.yml")
	require.NoError(t, os.WriteFile(path, []byte(customersYAML), 0o600))

	tmpl, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Customer List", tmpl.Name)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(customersYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"),
		[]byte(`{"name": "Alpha", "fields": [{"displayName": "Code", "type": "text"}]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o700))

	templates, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "Alpha", templates[0].Name)
	assert.Equal(t, "Customer List", templates[1].Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.json"), []byte(`{"name": ""}`), 0o600))
	_, err = LoadDir(dir)
	assert.True(t, errors.Is(err, core.ErrInvalidTemplate))

	_, err = LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBuiltin(t *testing.T) {
	templates := Builtin()
	require.Len(t, templates, 3)

	slugs := map[string]bool{}
	for i := range templates {
		tmpl := &templates[i]
		assert.NoError(t, Validate(tmpl), tmpl.Name)
		assert.False(t, slugs[tmpl.Slug])
		slugs[tmpl.Slug] = true
	}

	templates[0].Fields[0].Name = "changed"
	assert.Equal(t, "name", Builtin()[0].Fields[0].Name, "Builtin returns copies")
}
