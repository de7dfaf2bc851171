package core

// Transform re-keys each row by field machine name, in template field order.
// Output has exactly one CanonicalRow per input row. Unmapped fields and
// missing cells become "". Values are copied verbatim: no trimming or type
// coercion.
func Transform(rows []Row, fields []TemplateField, mappings Mappings) []CanonicalRow {
	source := mappings.Lookup()

	out := make([]CanonicalRow, len(rows))
	for i, row := range rows {
		c := make(CanonicalRow, len(fields))
		for _, f := range fields {
			if col := source[f.ID]; col != "" {
				c[f.Name] = row[col]
			} else {
				c[f.Name] = ""
			}
		}
		out[i] = c
	}
	return out
}

// Header returns the output column names (field.Name) in template order.
func Header(fields []TemplateField) []string {
	h := make([]string, len(fields))
	for i, f := range fields {
		h[i] = f.Name
	}
	return h
}

// Project flattens canonical rows into a header and positional values, both in
// template field order. Sheets and Parquet writers consume this shape.
func Project(rows []CanonicalRow, fields []TemplateField) (headers []string, values [][]string) {
	headers = Header(fields)
	values = make([][]string, len(rows))
	for i, row := range rows {
		v := make([]string, len(headers))
		for j, h := range headers {
			v[j] = row[h]
		}
		values[i] = v
	}
	return headers, values
}
