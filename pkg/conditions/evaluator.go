// Package conditions evaluates field/operator/value conditions against an
// execution context.
//
// Two shapes are accepted. A flat list of conditions is combined with AND:
//
//	[{"field": "status", "operator": "equals", "value": "active"}]
//
// A grouped form combines groups with an outer logic:
//
//	{"logic": "or", "groups": [{"logic": "and", "conditions": [...]}]}
//
// An empty condition set is true.
package conditions

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/values"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const (
	LogicAnd = "and"
	LogicOr  = "or"
)

// Condition is a single predicate.
type Condition struct {
	Field     string
	Operator  string
	Value     any
	ValueType string
}

// Evaluator is the default condition evaluator.
type Evaluator struct {
	logger   *slog.Logger
	resolver *values.Resolver
	now      func() time.Time

	mu       sync.RWMutex
	programs map[string]*vm.Program
}

type Option func(*Evaluator)

// WithClock sets the time source for date operators and date value types.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

func NewEvaluator(logger *slog.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		logger:   logger,
		now:      time.Now,
		programs: make(map[string]*vm.Program),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.resolver = values.NewResolver(values.WithClock(e.now))

	return e
}

// Evaluate reports whether conditions hold for execCtx. Malformed entries
// evaluate to false.
func (e *Evaluator) Evaluate(ctx context.Context, conditions any, execCtx models.ExecutionContext) bool {
	if models.IsEmpty(conditions) {
		return true
	}

	if list, ok := models.ValueOf(conditions).List(); ok {
		return e.evaluateGroup(ctx, list, LogicAnd, execCtx)
	}

	grouped, ok := models.ValueOf(conditions).Map()
	if !ok {
		return false
	}

	cfg := models.Config(grouped)

	groups := cfg.List("groups")
	if len(groups) == 0 {
		return true
	}

	results := make([]bool, 0, len(groups))

	for _, raw := range groups {
		group, ok := models.ValueOf(raw).Map()
		if !ok {
			results = append(results, false)

			continue
		}

		groupCfg := models.Config(group)
		results = append(results, e.evaluateGroup(ctx, groupCfg.List("conditions"), groupCfg.StringOr("logic", LogicAnd), execCtx))
	}

	return combine(results, cfg.StringOr("logic", LogicAnd))
}

func (e *Evaluator) evaluateGroup(ctx context.Context, conditions []any, logic string, execCtx models.ExecutionContext) bool {
	if len(conditions) == 0 {
		return true
	}

	results := make([]bool, 0, len(conditions))

	for _, raw := range conditions {
		entry, ok := models.ValueOf(raw).Map()
		if !ok {
			results = append(results, false)

			continue
		}

		cfg := models.Config(entry)
		results = append(results, e.EvaluateCondition(ctx, Condition{
			Field:     cfg.String("field"),
			Operator:  cfg.StringOr("operator", OpEquals),
			Value:     entry["value"],
			ValueType: cfg.StringOr("value_type", models.ValueTypeStatic),
		}, execCtx))
	}

	return combine(results, logic)
}

// EvaluateCondition evaluates a single predicate.
func (e *Evaluator) EvaluateCondition(ctx context.Context, condition Condition, execCtx models.ExecutionContext) bool {
	actual := e.fieldValue(condition.Field, execCtx)

	var expected any
	if condition.ValueType == models.ValueTypeField {
		name, _ := models.ValueOf(condition.Value).String()
		expected = e.fieldValue(name, execCtx)
	} else {
		expected = e.resolver.Resolve(condition.Value, condition.ValueType, execCtx)
	}

	if condition.Operator == OpFormula {
		return e.evaluateFormula(ctx, expected, execCtx)
	}

	return e.compare(actual, condition.Operator, expected)
}

// fieldValue resolves a dotted context path, or a bare record field name.
func (e *Evaluator) fieldValue(field string, execCtx models.ExecutionContext) any {
	if field == "" {
		return nil
	}

	if !strings.Contains(field, ".") {
		if v, ok := execCtx.RecordField(field); ok {
			return v.Raw()
		}
	}

	v, ok := template.Resolve(execCtx.Data(), field)
	if !ok {
		return nil
	}

	return v.Raw()
}

func (e *Evaluator) evaluateFormula(ctx context.Context, expression any, execCtx models.ExecutionContext) bool {
	source, ok := expression.(string)
	if !ok || strings.TrimSpace(source) == "" {
		return false
	}

	program, err := e.program(source)
	if err != nil {
		e.logger.WarnContext(ctx, "invalid condition formula", "formula", source, "error", err)

		return false
	}

	env := make(map[string]any, len(execCtx.Data())+1)
	for k, v := range execCtx.Data() {
		env[k] = v
	}

	env["fields"] = execCtx.RecordData()

	out, err := vm.Run(program, env)
	if err != nil {
		e.logger.WarnContext(ctx, "condition formula failed", "formula", source, "error", err)

		return false
	}

	result, ok := out.(bool)

	return ok && result
}

func (e *Evaluator) program(source string) (*vm.Program, error) {
	e.mu.RLock()
	if program, ok := e.programs[source]; ok {
		e.mu.RUnlock()

		return program, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.programs[source]; ok {
		return program, nil
	}

	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.programs[source] = program

	return program, nil
}

func combine(results []bool, logic string) bool {
	if len(results) == 0 {
		return true
	}

	if strings.EqualFold(logic, LogicOr) {
		return slices.Contains(results, true)
	}

	return !slices.Contains(results, false)
}

var patternCache sync.Map

func matchPattern(pattern, s string) bool {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(s)
	}

	re, err := regexp.Compile(trimDelimiters(pattern))
	if err != nil {
		return false
	}

	patternCache.Store(pattern, re)

	return re.MatchString(s)
}

// trimDelimiters accepts /pattern/ and /pattern/i forms.
func trimDelimiters(pattern string) string {
	if len(pattern) < 2 || pattern[0] != '/' {
		return pattern
	}

	end := strings.LastIndex(pattern, "/")
	if end <= 0 {
		return pattern
	}

	body, flags := pattern[1:end], pattern[end+1:]
	if strings.Contains(flags, "i") {
		return "(?i)" + body
	}

	return body
}
