// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/mailsync/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// FilterExpression validates a boolean-OR event filter expression such as
// "failed OR rejected". Every token must be one of the allowed values; the
// empty string passes so Required can decide whether a filter is mandatory.
type FilterExpression struct {
	Allowed []string
}

// Validate checks the expression against the allowed token set.
func (f FilterExpression) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_filter_type", "must be a string")
	}
	if s == "" {
		return nil
	}

	for _, token := range strings.Split(s, " OR ") {
		token = strings.TrimSpace(token)
		if token == "" {
			return validation.NewError("validation_filter_empty_token", "filter expression has an empty token")
		}
		if !f.allowed(token) {
			return validation.NewError(
				"validation_filter_token",
				"filter expression token must be one of: "+strings.Join(f.Allowed, ", "),
			)
		}
	}
	return nil
}

func (f FilterExpression) allowed(token string) bool {
	for _, a := range f.Allowed {
		if token == a {
			return true
		}
	}
	return false
}
