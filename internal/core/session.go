package core

import (
	"maps"
	"sync"
	"time"
)

// PreviewRows is how many parsed rows a SessionView carries.
const PreviewRows = 5

// session is one user's upload: the parsed file, the mapping being edited
// and the results of the last validate/standardize. Sessions share no state.
type session struct {
	mu sync.Mutex

	id         string
	template   *Template // snapshot taken when the session started
	fileName   string
	parsed     *ParsedCSV
	mappings   Mappings
	autoMapped bool

	validated bool
	errors    []ValidationError

	output       []CanonicalRow // set once Standardize succeeds
	standardized bool

	createdAt  time.Time
	lastAccess time.Time
}

// invalidate drops results derived from the current mapping.
func (s *session) invalidate() {
	s.validated = false
	s.errors = nil
	s.output = nil
	s.standardized = false
}

// SessionView is a read-only snapshot of a session for callers.
type SessionView struct {
	ID               string            `json:"id"`
	TemplateID       string            `json:"templateId"`
	TemplateName     string            `json:"templateName"`
	FileName         string            `json:"fileName"`
	Headers          []string          `json:"headers"`
	RowCount         int               `json:"rowCount"`
	Preview          []Row             `json:"preview"`
	Fields           []TemplateField   `json:"fields"`
	Mappings         Mappings          `json:"mappings"`
	AutoMapped       bool              `json:"autoMapped"`
	UnmappedRequired []string          `json:"unmappedRequired"`
	Validated        bool              `json:"validated"`
	Errors           []ValidationError `json:"errors"`
	ErrorCount       int               `json:"errorCount"`
	Standardized     bool              `json:"standardized"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// CanValidate reports whether every required field is mapped.
func (v *SessionView) CanValidate() bool {
	return len(v.UnmappedRequired) == 0
}

// view builds a snapshot. Caller holds s.mu.
func (s *session) view() *SessionView {
	unmapped := UnmappedRequired(s.template.Fields, s.mappings)
	names := make([]string, len(unmapped))
	for i, f := range unmapped {
		names[i] = f.DisplayName
	}

	n := min(len(s.parsed.Data), PreviewRows)
	preview := make([]Row, n)
	for i, row := range s.parsed.Data[:n] {
		preview[i] = maps.Clone(row)
	}

	errs := make([]ValidationError, len(s.errors))
	copy(errs, s.errors)

	return &SessionView{
		ID:               s.id,
		TemplateID:       s.template.ID,
		TemplateName:     s.template.Name,
		FileName:         s.fileName,
		Headers:          append([]string(nil), s.parsed.Headers...),
		RowCount:         s.parsed.RowCount,
		Preview:          preview,
		Fields:           append([]TemplateField(nil), s.template.Fields...),
		Mappings:         s.mappings.Clone(),
		AutoMapped:       s.autoMapped,
		UnmappedRequired: names,
		Validated:        s.validated,
		Errors:           errs,
		ErrorCount:       len(s.errors),
		Standardized:     s.standardized,
		CreatedAt:        s.createdAt,
	}
}
