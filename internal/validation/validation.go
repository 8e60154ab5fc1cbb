package validation

import (
	"sort"
	"strings"
	"time"
)

// Violations maps a field name to the code of the rule it broke.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Error lists the violations as "field: code", sorted by field.
func (v Violations) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v[f]
	}
	return strings.Join(parts, ", ")
}

// Err returns v as an error, or nil when there is nothing to report.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func RequiredTime(field string, t time.Time, v Violations) {
	if t.IsZero() {
		v[field] = "required"
	}
}

// NotBefore flags field when end is set and earlier than start.
func NotBefore(field string, end *time.Time, start time.Time, v Violations) {
	if end != nil && end.Before(start) {
		v[field] = "before_start"
	}
}

// OneOf flags field when value is not accepted by ok.
func OneOf(field, value string, ok func(string) bool, v Violations) {
	if !ok(value) {
		v[field] = "invalid_choice"
	}
}
