package engine

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// FieldValidator checks one field kind. Check returns a FieldError when
// the value fails the type check; rule checks (pattern, min/max) run
// separately and only after the type check passes.
type FieldValidator interface {
	// Check validates the value's type for this field kind.
	Check(field ConfigField, value any) *FieldError

	// Warnings returns advisory notes for a value that passed Check.
	Warnings(field ConfigField, value any) []string
}

// fieldValidators maps every FieldType to its validator. Dispatch is
// data-driven; an unknown type simply has no validator and passes.
var fieldValidators = map[FieldType]FieldValidator{
	FieldText:     textValidator{},
	FieldNumber:   numberValidator{},
	FieldBoolean:  booleanValidator{},
	FieldURL:      urlValidator{},
	FieldPath:     pathValidator{},
	FieldSelect:   selectValidator{},
	FieldPassword: passwordValidator{},
}

type textValidator struct{}

func (textValidator) Check(field ConfigField, value any) *FieldError {
	if _, ok := asString(value); !ok {
		return typeError(field, "must be text")
	}
	return nil
}

func (textValidator) Warnings(ConfigField, any) []string { return nil }

type numberValidator struct{}

func (numberValidator) Check(field ConfigField, value any) *FieldError {
	if _, ok := asNumber(value); !ok {
		return typeError(field, "must be a number")
	}
	return nil
}

func (numberValidator) Warnings(ConfigField, any) []string { return nil }

type booleanValidator struct{}

// Check requires a genuine boolean; truthy strings like "true" fail.
func (booleanValidator) Check(field ConfigField, value any) *FieldError {
	if _, ok := value.(bool); !ok {
		return typeError(field, "must be a boolean")
	}
	return nil
}

func (booleanValidator) Warnings(ConfigField, any) []string { return nil }

type urlValidator struct{}

func (urlValidator) Check(field ConfigField, value any) *FieldError {
	s, ok := asString(value)
	if !ok {
		return typeError(field, "must be a URL")
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return typeError(field, "must be a well-formed URL")
	}
	return nil
}

func (urlValidator) Warnings(field ConfigField, value any) []string {
	s, _ := asString(value)
	if strings.HasPrefix(s, "http://") {
		return []string{fmt.Sprintf("%s: uses insecure http scheme", fieldLabel(field))}
	}
	return nil
}

type pathValidator struct{}

func (pathValidator) Check(field ConfigField, value any) *FieldError {
	s, ok := asString(value)
	if !ok || strings.TrimSpace(s) == "" {
		return typeError(field, "must be a non-empty path")
	}
	return nil
}

func (pathValidator) Warnings(field ConfigField, value any) []string {
	s, _ := asString(value)
	if strings.ContainsAny(s, " \t") && !isQuoted(s) {
		return []string{fmt.Sprintf("%s: path contains whitespace; consider quoting it", fieldLabel(field))}
	}
	return nil
}

type selectValidator struct{}

func (selectValidator) Check(field ConfigField, value any) *FieldError {
	s, ok := asString(value)
	if ok {
		for _, opt := range field.Options {
			if opt.Value == s {
				return nil
			}
		}
	}
	allowed := make([]string, len(field.Options))
	for i, opt := range field.Options {
		allowed[i] = opt.Value
	}
	return typeError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

func (selectValidator) Warnings(ConfigField, any) []string { return nil }

type passwordValidator struct{}

func (passwordValidator) Check(field ConfigField, value any) *FieldError {
	if _, ok := asString(value); !ok {
		return typeError(field, "must be text")
	}
	return nil
}

// Warnings flags token-like secrets that look too short to be real.
func (passwordValidator) Warnings(field ConfigField, value any) []string {
	name := strings.ToLower(field.Name)
	if !strings.Contains(name, "token") && !strings.Contains(name, "key") {
		return nil
	}
	s, _ := asString(value)
	if len(s) < MinTokenLength {
		return []string{fmt.Sprintf("%s: value looks too short for a real token", fieldLabel(field))}
	}
	return nil
}

// checkRules enforces the declared pattern and numeric bounds. It runs
// only after the type check passed. The rule's custom message, when set,
// replaces the generated default.
func checkRules(field ConfigField, value any) *FieldError {
	rule := field.Validation
	if rule == nil {
		return nil
	}

	if rule.Pattern != "" {
		if s, ok := asString(value); ok {
			re, err := regexp.Compile(rule.Pattern)
			if err == nil && !re.MatchString(s) {
				return ruleError(field, fmt.Sprintf("does not match required pattern %s", rule.Pattern), CodePatternMismatch)
			}
		}
	}

	if field.Type == FieldNumber {
		n, _ := asNumber(value)
		if rule.Min != nil && n < *rule.Min {
			return ruleError(field, fmt.Sprintf("must be at least %v", *rule.Min), CodeOutOfRange)
		}
		if rule.Max != nil && n > *rule.Max {
			return ruleError(field, fmt.Sprintf("must be at most %v", *rule.Max), CodeOutOfRange)
		}
	}

	return nil
}

// isEmptyValue reports whether a supplied value counts as absent for the
// required check.
func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func typeError(field ConfigField, message string) *FieldError {
	return &FieldError{
		Field:   field.Name,
		Message: fmt.Sprintf("%s %s", fieldLabel(field), message),
		Code:    CodeInvalidType,
	}
}

func ruleError(field ConfigField, defaultMessage, code string) *FieldError {
	msg := fmt.Sprintf("%s %s", fieldLabel(field), defaultMessage)
	if field.Validation != nil && field.Validation.Message != "" {
		msg = field.Validation.Message
	}
	return &FieldError{Field: field.Name, Message: msg, Code: code}
}

func fieldLabel(field ConfigField) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// asNumber accepts native numeric types and numeric strings, matching
// how form layers deliver number fields.
func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isQuoted(s string) bool {
	return len(s) >= 2 &&
		((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\''))
}
