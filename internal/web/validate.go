package web

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxJSONBody bounds request bodies other than file uploads.
const maxJSONBody = 1 << 20

var requestValidator = newRequestValidator()

// newRequestValidator reports fields by their JSON names.
func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkRequest runs struct tag validation on a decoded request body and
// reports every failing field.
func checkRequest(v any) error {
	err := requestValidator.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidRequest("%v", err)
	}

	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems[i] = fe.Field() + " is required"
		default:
			problems[i] = fe.Field() + " failed " + fe.Tag()
		}
	}
	return invalidRequest("%s", strings.Join(problems, ", "))
}
