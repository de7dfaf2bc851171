package core

import (
	"context"
	"fmt"
	"time"
)

// FieldType represents the expected data type for a template field.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldEmail   FieldType = "email"
	FieldBoolean FieldType = "boolean"
)

// FieldTypes lists every supported field type in display order.
var FieldTypes = []FieldType{FieldText, FieldNumber, FieldDate, FieldEmail, FieldBoolean}

// ParseFieldType converts a type name to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	for _, ft := range FieldTypes {
		if string(ft) == s {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// TemplateField is one named, typed column of a template.
type TemplateField struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name" validate:"required"`               // Machine key, used as output column
	DisplayName string    `json:"displayName" yaml:"displayName" validate:"required"` // Human label
	Type        FieldType `json:"type" yaml:"type" validate:"required,oneof=text number date email boolean"`
	Required    bool      `json:"required" yaml:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// SheetConnection identifies the remote spreadsheet a template forwards rows to.
// Credentials are never stored on the template.
type SheetConnection struct {
	Provider        string    `json:"provider" yaml:"provider"`
	SpreadsheetID   string    `json:"spreadsheetId" yaml:"spreadsheetId"`
	SpreadsheetName string    `json:"spreadsheetName,omitempty" yaml:"spreadsheetName,omitempty"`
	SheetName       string    `json:"sheetName,omitempty" yaml:"sheetName,omitempty"`
	ConnectedAt     time.Time `json:"connectedAt,omitempty" yaml:"connectedAt,omitempty"`
}

// ProviderGoogleSheets is the only supported destination provider.
const ProviderGoogleSheets = "google_sheets"

// Template is a user-authored schema of target fields.
type Template struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name" validate:"required"`
	Slug        string           `json:"slug" yaml:"slug"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []TemplateField  `json:"fields" yaml:"fields" validate:"required,min=1,dive"`
	Destination *SheetConnection `json:"destination,omitempty" yaml:"destination,omitempty"`
	UserID      string           `json:"userId,omitempty" yaml:"userId,omitempty"`
	CreatedAt   time.Time        `json:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt   time.Time        `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

// Field returns the field with the given ID.
func (t *Template) Field(id string) (TemplateField, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return TemplateField{}, false
}

// Row is one parsed CSV record keyed by header cell.
// A header missing from the map reads as the empty string.
type Row map[string]string

// ParsedCSV is the result of parsing an uploaded file.
type ParsedCSV struct {
	Headers  []string `json:"headers"`
	Data     []Row    `json:"data"`
	RowCount int      `json:"rowCount"`
}

// ValidationError describes one invalid cell.
type ValidationError struct {
	Row     int    `json:"row"`     // 1-based index into the parsed rows
	Field   string `json:"field"`   // Field display name
	Message string `json:"message"` // Human-readable error message
	Value   string `json:"value"`   // Offending raw value, empty for missing required values
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// CanonicalRow is an output record keyed by TemplateField.Name.
type CanonicalRow map[string]string

// UploadRecord summarizes one standardized upload.
type UploadRecord struct {
	ID         string          `json:"id"`
	TemplateID string          `json:"templateId"`
	FileName   string          `json:"fileName"`
	RowCount   int             `json:"rowCount"`
	ErrorCount int             `json:"errorCount"`
	Mappings   []ColumnMapping `json:"mappings"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// TemplateStore persists templates.
type TemplateStore interface {
	// Get returns the template whose ID or slug equals ref.
	// Returns ErrTemplateNotFound if there is none.
	Get(ctx context.Context, ref string) (*Template, error)
	Save(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Template, error)
}

// UploadRecorder keeps the history of standardized uploads.
type UploadRecorder interface {
	RecordUpload(ctx context.Context, rec UploadRecord) error
	ListUploads(ctx context.Context, templateID string) ([]UploadRecord, error)
}

// SheetCredentials are the OAuth tokens supplied by the caller for one append.
type SheetCredentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// AppendRequest is the payload handed to a SheetSink.
type AppendRequest struct {
	SpreadsheetID string
	SheetName     string
	Headers       []string
	Rows          [][]string
	Credentials   SheetCredentials
}

// AppendResult reports how many data rows a sink appended.
type AppendResult struct {
	RowsAdded int `json:"rowsAdded"`
}

// SheetSink appends rows to a remote spreadsheet.
// Calling Append twice appends twice.
type SheetSink interface {
	Append(ctx context.Context, req AppendRequest) (AppendResult, error)
}
