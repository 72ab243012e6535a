// Package template provides {{ path }} interpolation of free text against an
// execution context.
package template

import (
	"regexp"
	"strings"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
)

var placeholder = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Interpolate replaces every {{ path }} token whose path resolves to a
// scalar. Unresolved tokens are left untouched so a broken template stays
// visibly broken.
func Interpolate(input string, execCtx models.ExecutionContext) string {
	return InterpolateData(input, execCtx.Data())
}

// InterpolateData is Interpolate over a plain map.
func InterpolateData(input string, data map[string]any) string {
	if !NeedsTemplating(input) {
		return input
	}

	return placeholder.ReplaceAllStringFunc(input, func(token string) string {
		path := strings.TrimSpace(token[2 : len(token)-2])

		v, ok := Resolve(data, path)
		if !ok {
			return token
		}

		s, ok := v.String()
		if !ok {
			return token
		}

		return s
	})
}

// InterpolateValue walks nested maps and lists and interpolates every
// string leaf. Non-string leaves are returned as-is.
func InterpolateValue(value any, execCtx models.ExecutionContext) any {
	switch v := value.(type) {
	case string:
		return Interpolate(v, execCtx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = InterpolateValue(item, execCtx)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = InterpolateValue(item, execCtx)
		}

		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Interpolate(item, execCtx)
		}

		return out
	default:
		return value
	}
}

// Resolve looks path up in data. A "record.<field>" path that misses is
// retried as "record.data.<field>" so both spellings reach record fields.
func Resolve(data map[string]any, path string) (models.Value, bool) {
	if v, ok := models.Lookup(data, path); ok {
		return v, true
	}

	if rest, found := strings.CutPrefix(path, models.ContextKeyRecord+"."); found && !strings.HasPrefix(rest, "data.") {
		return models.Lookup(data, models.ContextKeyRecord+".data."+rest)
	}

	return models.Value{}, false
}

// Placeholders returns the trimmed paths referenced by input, in order.
func Placeholders(input string) []string {
	matches := placeholder.FindAllStringSubmatch(input, -1)
	paths := make([]string, 0, len(matches))

	for _, m := range matches {
		paths = append(paths, strings.TrimSpace(m[1]))
	}

	return paths
}

// ReplacePlaceholders substitutes each {{ path }} token with the string
// returned by fn for its trimmed path.
func ReplacePlaceholders(input string, fn func(path string) string) string {
	return placeholder.ReplaceAllStringFunc(input, func(token string) string {
		return fn(strings.TrimSpace(token[2 : len(token)-2]))
	})
}

// NeedsTemplating reports whether input contains a {{ }} token.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{") && strings.Contains(input, "}}")
}
