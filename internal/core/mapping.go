package core

// ColumnMapping assigns a source CSV column to a target template field.
type ColumnMapping struct {
	SourceColumn  string `json:"sourceColumn"`
	TargetFieldID string `json:"targetFieldId"`
}

// Mappings is a mapping set. A target field appears at most once; a source
// column may feed several targets.
type Mappings []ColumnMapping

// Lookup builds a targetFieldID -> sourceColumn index.
// If a target appears more than once the last entry wins.
func (m Mappings) Lookup() map[string]string {
	idx := make(map[string]string, len(m))
	for _, cm := range m {
		idx[cm.TargetFieldID] = cm.SourceColumn
	}
	return idx
}

// SourceFor returns the column mapped to fieldID, or "" if unmapped.
func (m Mappings) SourceFor(fieldID string) string {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].TargetFieldID == fieldID {
			return m[i].SourceColumn
		}
	}
	return ""
}

// Set returns a copy of m with fieldID mapped to column.
// An empty column removes the mapping for fieldID.
func (m Mappings) Set(fieldID, column string) Mappings {
	out := make(Mappings, 0, len(m)+1)
	for _, cm := range m {
		if cm.TargetFieldID != fieldID {
			out = append(out, cm)
		}
	}
	if column != "" {
		out = append(out, ColumnMapping{SourceColumn: column, TargetFieldID: fieldID})
	}
	return out
}

// Clone returns an independent copy of m.
func (m Mappings) Clone() Mappings {
	if m == nil {
		return nil
	}
	out := make(Mappings, len(m))
	copy(out, m)
	return out
}
