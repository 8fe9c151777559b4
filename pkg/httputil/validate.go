package httputil

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator; it caches struct metadata across calls
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so error details match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct checks validate tags and returns field -> failed rule details
func ValidateStruct(s interface{}) (map[string]string, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, err
	}

	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		details[fe.Field()] = fe.Tag()
	}
	return details, nil
}

// ValidateStructOrError validates s and writes a 400 with details on failure
func ValidateStructOrError(w http.ResponseWriter, s interface{}) bool {
	details, err := ValidateStruct(s)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	if len(details) > 0 {
		WriteDetailedError(w, http.StatusBadRequest, "validation failed", details)
		return false
	}
	return true
}
