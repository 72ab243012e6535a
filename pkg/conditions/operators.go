package conditions

import (
	"strings"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
)

// Operators.
const (
	OpEquals            = "equals"
	OpNotEquals         = "not_equals"
	OpGreaterThan       = "greater_than"
	OpGreaterThanEquals = "greater_than_or_equals"
	OpLessThan          = "less_than"
	OpLessThanEquals    = "less_than_or_equals"
	OpContains          = "contains"
	OpNotContains       = "not_contains"
	OpStartsWith        = "starts_with"
	OpEndsWith          = "ends_with"
	OpMatchesPattern    = "matches_pattern"
	OpIsEmpty           = "is_empty"
	OpIsNotEmpty        = "is_not_empty"
	OpIsNull            = "is_null"
	OpIsNotNull         = "is_not_null"
	OpIn                = "in"
	OpNotIn             = "not_in"
	OpArrayContains     = "array_contains"
	OpArrayNotContains  = "array_not_contains"
	OpIsTrue            = "is_true"
	OpIsFalse           = "is_false"
	OpDateEquals        = "date_equals"
	OpDateBefore        = "date_before"
	OpDateAfter         = "date_after"
	OpDateOnOrBefore    = "date_on_or_before"
	OpDateOnOrAfter     = "date_on_or_after"
	OpIsToday           = "is_today"
	OpIsOverdue         = "is_overdue"
	OpFormula           = "formula"
)

var aliases = map[string]string{
	"eq":      OpEquals,
	"==":      OpEquals,
	"neq":     OpNotEquals,
	"!=":      OpNotEquals,
	"gt":      OpGreaterThan,
	">":       OpGreaterThan,
	"gte":     OpGreaterThanEquals,
	">=":      OpGreaterThanEquals,
	"lt":      OpLessThan,
	"<":       OpLessThan,
	"lte":     OpLessThanEquals,
	"<=":      OpLessThanEquals,
	"regex":   OpMatchesPattern,
	"is_set":  OpIsNotEmpty,
	"not_set": OpIsEmpty,
}

// Operators returns every supported operator name, excluding aliases.
func Operators() []string {
	return []string{
		OpEquals, OpNotEquals, OpGreaterThan, OpGreaterThanEquals, OpLessThan, OpLessThanEquals,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpMatchesPattern,
		OpIsEmpty, OpIsNotEmpty, OpIsNull, OpIsNotNull,
		OpIn, OpNotIn, OpArrayContains, OpArrayNotContains,
		OpIsTrue, OpIsFalse,
		OpDateEquals, OpDateBefore, OpDateAfter, OpDateOnOrBefore, OpDateOnOrAfter, OpIsToday, OpIsOverdue,
		OpFormula,
	}
}

func (e *Evaluator) compare(actual any, operator string, expected any) bool {
	if canonical, ok := aliases[operator]; ok {
		operator = canonical
	}

	switch operator {
	case OpEquals:
		return looseEqual(actual, expected)
	case OpNotEquals:
		return !looseEqual(actual, expected)
	case OpGreaterThan, OpGreaterThanEquals, OpLessThan, OpLessThanEquals:
		return compareNumbers(actual, operator, expected)
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return compareStrings(actual, operator, expected)
	case OpMatchesPattern:
		a, okA := actual.(string)
		pattern, okP := expected.(string)

		return okA && okP && matchPattern(pattern, a)
	case OpIsEmpty:
		return isEmptyValue(actual)
	case OpIsNotEmpty:
		return !isEmptyValue(actual)
	case OpIsNull:
		return actual == nil
	case OpIsNotNull:
		return actual != nil
	case OpIn:
		list, ok := models.ValueOf(expected).List()

		return ok && containsLoose(list, actual)
	case OpNotIn:
		list, ok := models.ValueOf(expected).List()

		return ok && !containsLoose(list, actual)
	case OpArrayContains:
		list, ok := models.ValueOf(actual).List()

		return ok && containsLoose(list, expected)
	case OpArrayNotContains:
		list, ok := models.ValueOf(actual).List()

		return ok && !containsLoose(list, expected)
	case OpIsTrue:
		return isExactly(actual, true)
	case OpIsFalse:
		return isExactly(actual, false)
	case OpDateEquals, OpDateBefore, OpDateAfter, OpDateOnOrBefore, OpDateOnOrAfter:
		return compareDates(actual, operator, expected)
	case OpIsToday:
		t, ok := parseTime(actual)

		return ok && sameDay(t, e.now())
	case OpIsOverdue:
		t, ok := parseTime(actual)

		return ok && t.Before(e.now())
	default:
		return false
	}
}

// looseEqual compares numerically when both sides are numeric, by
// truthiness when either side is a bool, and by rendered text otherwise.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return isEmptyValue(a) && isEmptyValue(b)
	}

	va, vb := models.ValueOf(a), models.ValueOf(b)

	if _, ok := a.(bool); ok {
		return va.Bool() == vb.Bool()
	}

	if _, ok := b.(bool); ok {
		return va.Bool() == vb.Bool()
	}

	fa, okA := va.Float()
	fb, okB := vb.Float()

	if okA && okB {
		return fa == fb
	}

	sa, okA := va.String()
	sb, okB := vb.String()

	return okA && okB && sa == sb
}

func compareNumbers(a any, operator string, b any) bool {
	fa, okA := models.ValueOf(a).Float()
	fb, okB := models.ValueOf(b).Float()

	if !okA || !okB {
		return false
	}

	switch operator {
	case OpGreaterThan:
		return fa > fb
	case OpGreaterThanEquals:
		return fa >= fb
	case OpLessThan:
		return fa < fb
	default:
		return fa <= fb
	}
}

func compareStrings(a any, operator string, b any) bool {
	sa, okA := a.(string)
	sb, okB := b.(string)

	if !okA || !okB {
		return false
	}

	sa, sb = strings.ToLower(sa), strings.ToLower(sb)

	switch operator {
	case OpContains:
		return strings.Contains(sa, sb)
	case OpNotContains:
		return !strings.Contains(sa, sb)
	case OpStartsWith:
		return strings.HasPrefix(sa, sb)
	default:
		return strings.HasSuffix(sa, sb)
	}
}

func containsLoose(list []any, needle any) bool {
	for _, item := range list {
		if looseEqual(item, needle) {
			return true
		}
	}

	return false
}

func isEmptyValue(v any) bool {
	if models.IsEmpty(v) {
		return true
	}

	switch t := v.(type) {
	case string:
		return t == "0"
	default:
		f, ok := models.ValueOf(v).Float()

		return ok && models.ValueOf(v).Kind() == models.KindNumber && f == 0
	}
}

// isExactly accepts the bool itself and its 1/0, "1"/"0", "true"/"false" forms.
func isExactly(v any, want bool) bool {
	switch t := v.(type) {
	case bool:
		return t == want
	case string:
		if want {
			return t == "1" || t == "true"
		}

		return t == "0" || t == "false"
	}

	if models.ValueOf(v).Kind() != models.KindNumber {
		return false
	}

	f, _ := models.ValueOf(v).Float()
	if want {
		return f == 1
	}

	return f == 0
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}

	return time.Time{}, false
}

func sameDay(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()

	return ya == yb && ma == mb && da == db
}

func compareDates(a any, operator string, b any) bool {
	ta, okA := parseTime(a)
	tb, okB := parseTime(b)

	if !okA || !okB {
		return false
	}

	switch operator {
	case OpDateEquals:
		return sameDay(ta, tb)
	case OpDateBefore:
		return ta.Before(tb)
	case OpDateAfter:
		return ta.After(tb)
	case OpDateOnOrBefore:
		return sameDay(ta, tb) || ta.Before(tb)
	default:
		return sameDay(ta, tb) || ta.After(tb)
	}
}
