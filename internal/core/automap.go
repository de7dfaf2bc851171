package core

// AutoMapThreshold is the minimum score for a suggested mapping.
const AutoMapThreshold = 0.5

// Suggest proposes a mapping of source columns onto fields.
//
// Fields are visited in order. Each field claims the unclaimed column with the
// strictly highest score (first column wins ties) when that score reaches
// AutoMapThreshold. A claimed column name is never offered to a later field, and
// no claim is revisited, so the result depends on field order.
func (m Matcher) Suggest(sourceColumns []string, fields []TemplateField) Mappings {
	claimed := make(map[string]bool, len(sourceColumns))
	var out Mappings

	for _, field := range fields {
		best, bestScore := -1, 0.0

		for i, col := range sourceColumns {
			if claimed[col] {
				continue
			}
			score := max(m.Score(col, field.Name), m.Score(col, field.DisplayName))
			if score > bestScore {
				best, bestScore = i, score
			}
		}

		if best >= 0 && bestScore >= AutoMapThreshold {
			claimed[sourceColumns[best]] = true
			out = append(out, ColumnMapping{
				SourceColumn:  sourceColumns[best],
				TargetFieldID: field.ID,
			})
		}
	}

	return out
}

// Suggest proposes a mapping using the default synonym table.
func Suggest(sourceColumns []string, fields []TemplateField) Mappings {
	return DefaultMatcher().Suggest(sourceColumns, fields)
}
