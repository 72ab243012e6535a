// Package formula evaluates restricted arithmetic formulas. Input is
// tokenized and parsed by a recursive-descent parser; nothing is ever handed
// to a general-purpose interpreter.
package formula

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
)

var (
	// ErrInvalidExpression is returned for input outside the arithmetic grammar.
	ErrInvalidExpression = errors.New("invalid arithmetic expression")
	// ErrDivisionByZero is returned for x/0 and x%0.
	ErrDivisionByZero = errors.New("division by zero")
)

var allowed = regexp.MustCompile(`^[0-9\s+\-*/%().]+$`)

// Evaluate substitutes {{ path }} references with the numeric value found in
// the context (0 when absent or non-numeric), then computes the result.
// When the substituted text is not a valid arithmetic expression the
// original formula is returned unevaluated.
func Evaluate(formula string, execCtx models.ExecutionContext) any {
	return EvaluateData(formula, execCtx.Data())
}

// EvaluateData is Evaluate over a plain map.
func EvaluateData(formula string, data map[string]any) any {
	expression := Substitute(formula, data)

	result, err := Calculate(expression)
	if err != nil {
		return formula
	}

	return normalize(result)
}

// Substitute replaces each {{ path }} with the referenced numeric value.
func Substitute(formula string, data map[string]any) string {
	return template.ReplacePlaceholders(formula, func(path string) string {
		v, ok := template.Resolve(data, path)
		if !ok {
			return "0"
		}

		f, ok := v.Float()
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return "0"
		}

		return models.FormatNumber(f)
	})
}

// Calculate evaluates a plain arithmetic expression of numbers,
// + - * / %, unary signs and parentheses.
func Calculate(expression string) (float64, error) {
	if strings.TrimSpace(expression) == "" || !allowed.MatchString(expression) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpression, expression)
	}

	tokens, err := tokenize(expression)
	if err != nil {
		return 0, err
	}

	p := &parser{tokens: tokens}

	result, err := p.parseExpression()
	if err != nil {
		return 0, err
	}

	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, p.tokens[p.pos].text)
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: non-finite result", ErrInvalidExpression)
	}

	return result, nil
}

func normalize(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}

	return f
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenOperator
	tokenLParen
	tokenRParen
)

type token struct {
	kind  tokenKind
	text  string
	value float64
}

func tokenize(input string) ([]token, error) {
	tokens := make([]token, 0, len(input)/2)

	for i := 0; i < len(input); {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}

			text := input[start:i]

			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, text)
			}

			tokens = append(tokens, token{kind: tokenNumber, text: text, value: value})
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
			tokens = append(tokens, token{kind: tokenOperator, text: string(c)})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrInvalidExpression, c)
		}
	}

	return tokens, nil
}

// parser implements:
//
//	expression = term { ("+" | "-") term }
//	term       = unary { ("*" | "/" | "%") unary }
//	unary      = [ "+" | "-" ] unary | primary
//	primary    = number | "(" expression ")"
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}

	return p.tokens[p.pos], true
}

func (p *parser) parseExpression() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokenOperator || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}

		p.pos++

		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}

		if tok.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokenOperator || (tok.text != "*" && tok.text != "/" && tok.text != "%") {
			return left, nil
		}

		p.pos++

		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}

		switch tok.text {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, ErrDivisionByZero
			}

			left /= right
		case "%":
			if right == 0 {
				return 0, ErrDivisionByZero
			}

			left = math.Mod(left, right)
		}
	}
}

func (p *parser) parseUnary() (float64, error) {
	tok, ok := p.peek()
	if ok && tok.kind == tokenOperator && (tok.text == "-" || tok.text == "+") {
		p.pos++

		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}

		if tok.text == "-" {
			return -value, nil
		}

		return value, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	tok, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of input", ErrInvalidExpression)
	}

	switch tok.kind {
	case tokenNumber:
		p.pos++

		return tok.value, nil
	case tokenLParen:
		p.pos++

		value, err := p.parseExpression()
		if err != nil {
			return 0, err
		}

		closing, ok := p.peek()
		if !ok || closing.kind != tokenRParen {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrInvalidExpression)
		}

		p.pos++

		return value, nil
	default:
		return 0, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, tok.text)
	}
}
