package common

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNicknameLength bounds roster and ledger nicknames.
const MaxNicknameLength = 64

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// ValidationError is one failed rule on one request field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Message, fmt.Sprint(e.Value))
}

// ValidationRule checks one field value and returns nil when it passes.
type ValidationRule func(field string, value any) *ValidationError

// Validator collects rule failures across several fields so a caller can report them
// together.
type Validator struct {
	errs []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules against value in order and records every failure.
func (v *Validator) Field(field string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(field, value); err != nil {
			v.errs = append(v.errs, *err)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

// ErrorMessage joins the recorded failures with "; ".
func (v *Validator) ErrorMessage() string {
	msgs := make([]string, len(v.errs))
	for i, e := range v.errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Error wraps the recorded failures in ErrValidation, or returns nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
}

// ValidateAndReturnError turns recorded failures into a gRPC InvalidArgument status.
func ValidateAndReturnError(v *Validator) error {
	if v.HasErrors() {
		return InvalidArgumentError(v.ErrorMessage())
	}
	return nil
}

func stringValue(value any) (string, bool) {
	switch s := value.(type) {
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	}
	return "", false
}

func fail(field string, value any, msg string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: msg}
}

// Required rejects nil values and blank strings.
func Required(field string, value any) *ValidationError {
	if value == nil {
		return fail(field, value, "is required")
	}
	if s, ok := stringValue(value); ok && strings.TrimSpace(s) == "" {
		return fail(field, value, "is required")
	}
	if p, ok := value.(*string); ok && p == nil {
		return fail(field, value, "is required")
	}
	return nil
}

// MaxLen limits a string to max runes. Non-string values pass.
func MaxLen(max int) ValidationRule {
	return func(field string, value any) *ValidationError {
		if s, ok := stringValue(value); ok && utf8.RuneCountInString(s) > max {
			return fail(field, value, fmt.Sprintf("must be at most %d characters", max))
		}
		return nil
	}
}

// UUID accepts a non-empty string that parses as a UUID. Blank strings are left to
// Required.
func UUID(field string, value any) *ValidationError {
	s, ok := stringValue(value)
	if !ok {
		return fail(field, value, "must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return fail(field, value, "must be a UUID")
	}
	return nil
}

// NoControlChars rejects strings carrying control characters (tabs, newlines) that
// would corrupt a worksheet cell.
func NoControlChars(field string, value any) *ValidationError {
	s, ok := stringValue(value)
	if !ok {
		return fail(field, value, "must be a string")
	}
	if controlChars.MatchString(s) {
		return fail(field, value, "must not contain control characters")
	}
	return nil
}

// ValidateNickname applies the roster rules to a single nickname.
func ValidateNickname(field, name string) error {
	return NewValidator().
		Field(field, name, Required, MaxLen(MaxNicknameLength), NoControlChars).
		Error()
}
