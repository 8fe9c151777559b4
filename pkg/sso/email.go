package sso

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailValidator = validator.New()

// IsValidEmail reports whether email is a syntactically valid address
func IsValidEmail(email string) bool {
	return emailValidator.Var(email, "required,email") == nil
}

// ExtractDomain returns everything after the first '@', lower-cased.
// A quoted local part containing '@' therefore yields a partial domain; the
// slicing is intentionally no stricter than that.
func ExtractDomain(email string) string {
	return strings.ToLower(email[strings.Index(email, "@")+1:])
}
