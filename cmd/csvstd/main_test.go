package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/export"
)

const contactsYAML = `
name: Contacts
fields:
  - name: email
    displayName: Email
    type: email
    required: true
  - name: name
    displayName: Full Name
    type: text
    required: true
  - name: age
    displayName: Age
    type: number
`

const goodCSV = "E-mail,Full Name,Age\nann@example.com,Ann,30\nbob@example.com,Bob,\n"

const badCSV = "E-mail,Full Name,Age\nnot-an-email,Ann,30\ncat@example.com,,abc\n"

// execute runs the CLI in-process and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"suggest without in", []string{"suggest", "--template", "t.yaml"}, `required flag(s) "in" not set`},
		{"validate without template", []string{"validate", "--in", "x.csv"}, `required flag(s) "template" not set`},
		{"standardize without out-dir", []string{"standardize", "--template", "t.yaml", "x.csv"}, `required flag(s) "out-dir" not set`},
		{"standardize without files", []string{"standardize", "--template", "t.yaml", "--out-dir", "out"}, "requires at least 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSuggest(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	in := writeFile(t, dir, "in.csv", goodCSV)

	out, err := execute(t, "suggest", "--template", tmpl, "--in", in)
	require.NoError(t, err)

	var got core.Mappings
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, core.Mappings{
		{SourceColumn: "E-mail", TargetFieldID: "email"},
		{SourceColumn: "Full Name", TargetFieldID: "name"},
		{SourceColumn: "Age", TargetFieldID: "age"},
	}, got)
}

func TestSuggest_ToFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	in := writeFile(t, dir, "in.csv", goodCSV)
	mapping := filepath.Join(dir, "mapping.json")

	out, err := execute(t, "suggest", "-t", tmpl, "-i", in, "-o", mapping)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(mapping)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"targetFieldId": "email"`)
}

func TestSuggest_MissingInput(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)

	_, err := execute(t, "suggest", "--template", tmpl, "--in", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)

	t.Run("valid file", func(t *testing.T) {
		in := writeFile(t, dir, "good.csv", goodCSV)
		out, err := execute(t, "validate", "--template", tmpl, "--in", in)
		require.NoError(t, err)
		assert.Equal(t, "2 rows valid\n", out)
	})

	t.Run("invalid rows exit with error", func(t *testing.T) {
		in := writeFile(t, dir, "bad.csv", badCSV)
		out, err := execute(t, "validate", "--template", tmpl, "--in", in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrValidationFailed))

		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Equal(t, []string{
			`row 1, Email: Invalid email format ("not-an-email")`,
			`row 2, Full Name: Full Name is required`,
			`row 2, Age: Invalid number format ("abc")`,
		}, lines)
	})

	t.Run("json output", func(t *testing.T) {
		in := writeFile(t, dir, "bad.csv", badCSV)
		out, err := execute(t, "validate", "--template", tmpl, "--in", in, "--json")
		require.Error(t, err)

		var errs []core.ValidationError
		require.NoError(t, json.Unmarshal([]byte(out), &errs))
		assert.Len(t, errs, 3)
	})
}

func TestValidate_MappingFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	in := writeFile(t, dir, "in.csv", "Contact,Who,Years\nann@example.com,Ann,30\n")

	t.Run("explicit mapping by field name", func(t *testing.T) {
		mapping := writeFile(t, dir, "mapping.json", `[
			{"sourceColumn": "Contact", "targetFieldId": "email"},
			{"sourceColumn": "Who", "targetFieldId": "name"},
			{"sourceColumn": "Years", "targetFieldId": "age"}
		]`)
		out, err := execute(t, "validate", "-t", tmpl, "-i", in, "-m", mapping)
		require.NoError(t, err)
		assert.Equal(t, "1 rows valid\n", out)
	})

	t.Run("unknown column", func(t *testing.T) {
		mapping := writeFile(t, dir, "unknown.json", `[{"sourceColumn": "Nope", "targetFieldId": "email"}]`)
		_, err := execute(t, "validate", "-t", tmpl, "-i", in, "-m", mapping)
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
		assert.Contains(t, err.Error(), "Nope")
	})

	t.Run("required field unmapped", func(t *testing.T) {
		mapping := writeFile(t, dir, "partial.json", `[{"sourceColumn": "Contact", "targetFieldId": "email"}]`)
		_, err := execute(t, "validate", "-t", tmpl, "-i", in, "-m", mapping)
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("malformed mapping", func(t *testing.T) {
		mapping := writeFile(t, dir, "broken.json", `{"sourceColumn":`)
		_, err := execute(t, "validate", "-t", tmpl, "-i", in, "-m", mapping)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode mapping")
	})
}

func TestValidate_Charset(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	// "José" in windows-1252.
	in := writeFile(t, dir, "latin.csv", "Email,Full Name\njose@example.com,Jos\xe9\n")

	out, err := execute(t, "validate", "--charset", "windows-1252", "-t", tmpl, "-i", in)
	require.NoError(t, err)
	assert.Equal(t, "1 rows valid\n", out)

	_, err = execute(t, "validate", "-t", tmpl, "-i", in)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEncoding)
}

func TestStandardize(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	first := writeFile(t, dir, "january.csv", goodCSV)
	second := writeFile(t, dir, "february.csv", "name,email address\nCid,cid@example.com\n")
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "standardize", "-t", tmpl, "--out-dir", outDir, "--jobs", "2", first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "january-standardized.csv (2 rows)")
	assert.Contains(t, out, "february-standardized.csv (1 rows)")

	data, err := os.ReadFile(filepath.Join(outDir, "january-standardized.csv"))
	require.NoError(t, err)
	assert.Equal(t, "email,name,age\r\nann@example.com,Ann,30\r\nbob@example.com,Bob,\r\n", string(data))

	data, err = os.ReadFile(filepath.Join(outDir, "february-standardized.csv"))
	require.NoError(t, err)
	assert.Equal(t, "email,name,age\r\ncid@example.com,Cid,\r\n", string(data))
}

func TestStandardize_Parquet(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	in := writeFile(t, dir, "in.csv", goodCSV)
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "standardize", "-t", tmpl, "-o", outDir, "--format", "parquet", in)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(outDir, "in-standardized.parquet"))
	require.NoError(t, err)
	defer f.Close()

	headers, rows, err := export.ReadParquet(t.Context(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "name", "age"}, headers)
	assert.Equal(t, [][]string{
		{"ann@example.com", "Ann", "30"},
		{"bob@example.com", "Bob", ""},
	}, rows)
}

func TestStandardize_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	good := writeFile(t, dir, "good.csv", goodCSV)
	bad := writeFile(t, dir, "bad.csv", badCSV)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "standardize", "-t", tmpl, "-o", outDir, "-j", "1", bad, good)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidationFailed)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "FAIL "+bad)
	assert.Contains(t, out, "ok   "+good)

	assert.FileExists(t, filepath.Join(outDir, "good-standardized.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "bad-standardized.csv"))
}

func TestStandardize_BadOptions(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	in := writeFile(t, dir, "in.csv", goodCSV)

	_, err := execute(t, "standardize", "-t", tmpl, "-o", dir, "--format", "xlsx", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "xlsx"`)

	_, err = execute(t, "standardize", "-t", tmpl, "-o", dir, "--jobs", "0", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--jobs must be at least 1")
}

func TestStandardize_DuplicateOutputNames(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "contacts.yaml", contactsYAML)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b"), 0o755))
	first := writeFile(t, filepath.Join(dir, "a"), "data.csv", goodCSV)
	second := writeFile(t, filepath.Join(dir, "b"), "data.csv", goodCSV)
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "standardize", "-t", tmpl, "-o", outDir, first, second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "would both write data-standardized.csv")
	assert.NoDirExists(t, outDir)
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		path, format, want string
	}{
		{"data/january.csv", "csv", "january-standardized.csv"},
		{"report.final.CSV", "parquet", "report.final-standardized.parquet"},
		{"noext", "csv", "noext-standardized.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outputName(tt.path, tt.format), tt.path)
	}
}

func TestByNameByID(t *testing.T) {
	fields := []core.TemplateField{
		{ID: "f1", Name: "email"},
		{ID: "f2", Name: "name"},
	}
	ids := core.Mappings{
		{SourceColumn: "E-mail", TargetFieldID: "f1"},
		{SourceColumn: "Who", TargetFieldID: "f2"},
	}

	named := byName(ids, fields)
	assert.Equal(t, "email", named[0].TargetFieldID)
	assert.Equal(t, "name", named[1].TargetFieldID)

	assert.Equal(t, ids, byID(named, fields))
	assert.Equal(t, ids, byID(ids, fields), "IDs pass through")

	unknown := byID(core.Mappings{{SourceColumn: "x", TargetFieldID: "missing"}}, fields)
	assert.Equal(t, "missing", unknown[0].TargetFieldID)
}
