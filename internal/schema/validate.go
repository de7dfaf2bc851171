package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a decoded template. Every problem is reported, not just
// the first.
func Validate(t *core.Template) error {
	var errs []FieldError

	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", core.ErrInvalidTemplate, err)
		}
		for _, fe := range verrs {
			errs = append(errs, FieldError{
				Field:   strings.TrimPrefix(fe.Namespace(), "Template."),
				Message: tagMessage(fe),
			})
		}
	}

	ids := make(map[string]int, len(t.Fields))
	names := make(map[string]int, len(t.Fields))
	for i, f := range t.Fields {
		if prev, ok := ids[f.ID]; ok && f.ID != "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("Fields[%d].ID", i),
				Message: fmt.Sprintf("duplicates Fields[%d]", prev),
			})
		} else {
			ids[f.ID] = i
		}
		if prev, ok := names[f.Name]; ok && f.Name != "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("Fields[%d].Name", i),
				Message: fmt.Sprintf("%q duplicates Fields[%d]", f.Name, prev),
			})
		} else {
			names[f.Name] = i
		}
	}

	if d := t.Destination; d != nil {
		if d.Provider != core.ProviderGoogleSheets {
			errs = append(errs, FieldError{Field: "Destination.Provider", Message: fmt.Sprintf("unsupported provider %q", d.Provider)})
		}
		if d.SpreadsheetID == "" {
			errs = append(errs, FieldError{Field: "Destination.SpreadsheetID", Message: "is required"})
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
