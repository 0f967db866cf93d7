package shared

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
)

var emailCheck = validator.New()

// NormalizeEmail trims whitespace and case-folds the address so that lookups
// and the uniqueness constraint are case-insensitive. Folding rather than
// lower-casing keeps non-ASCII mailboxes comparable.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// ValidEmail reports whether the address is well-formed. Services check this
// themselves; handler-level validation alone would not cover non-HTTP callers.
func ValidEmail(email string) bool {
	return emailCheck.Var(strings.TrimSpace(email), "required,email") == nil
}
