package results

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Final-score formulas are short arithmetic expressions stored as plain
// text on course/contest/task rows, e.g. "{best_score_before_finish}" or
// "max({best_score_before_finish}, {best_score_no_deadline})".
//
// The grammar is restricted by construction: numbers, "{name}" variable
// references, the binary operators + - * / and right-associative **, unary
// minus, parentheses, and the two-argument functions min and max. Nothing
// else parses, so there is nothing to sandbox.

// FormulaError reports a malformed or unsupported formula. It is fatal for
// the task being evaluated and must not be silently defaulted.
type FormulaError struct {
	Formula string
	Msg     string
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("formula %q: %s", e.Formula, e.Msg)
}

// Evaluate computes the value of formula with the given variable bindings.
// Referencing a variable absent from bindings is a *FormulaError.
func Evaluate(formula string, bindings map[string]float64) (float64, error) {
	if strings.TrimSpace(formula) == "" {
		return 0, &FormulaError{Formula: formula, Msg: "empty formula"}
	}
	p := &formulaParser{formula: formula, src: []rune(formula), bindings: bindings}
	p.next()
	val, err := p.parseExpr(0)
	if err != nil {
		return 0, err
	}
	if p.tok.kind != tokEOF {
		return 0, p.errorf("unexpected %q", p.tok.text)
	}
	return val, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokVar
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPow
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type formulaParser struct {
	formula  string
	src      []rune
	pos      int
	tok      token
	bindings map[string]float64
}

func (p *formulaParser) errorf(format string, args ...interface{}) error {
	return &FormulaError{Formula: p.formula, Msg: fmt.Sprintf(format, args...)}
}

func (p *formulaParser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF}
		return
	}

	c := p.src[p.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		text := string(p.src[start:p.pos])
		num, err := strconv.ParseFloat(text, 64)
		if err != nil {
			num = math.NaN() // reported by the caller via tok.text
		}
		p.tok = token{kind: tokNumber, text: text, num: num}
	case c == '{':
		end := p.pos + 1
		for end < len(p.src) && p.src[end] != '}' {
			end++
		}
		if end >= len(p.src) {
			p.tok = token{kind: tokVar, text: string(p.src[p.pos:])} // unterminated; caught on lookup
			p.pos = len(p.src)
			return
		}
		p.tok = token{kind: tokVar, text: strings.TrimSpace(string(p.src[p.pos+1 : end]))}
		p.pos = end + 1
	case unicode.IsLetter(c) || c == '_':
		start := p.pos
		for p.pos < len(p.src) && (unicode.IsLetter(p.src[p.pos]) || unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: string(p.src[start:p.pos])}
	case c == '*':
		if p.pos+1 < len(p.src) && p.src[p.pos+1] == '*' {
			p.tok = token{kind: tokPow, text: "**"}
			p.pos += 2
		} else {
			p.tok = token{kind: tokStar, text: "*"}
			p.pos++
		}
	case c == '+':
		p.tok = token{kind: tokPlus, text: "+"}
		p.pos++
	case c == '-':
		p.tok = token{kind: tokMinus, text: "-"}
		p.pos++
	case c == '/':
		p.tok = token{kind: tokSlash, text: "/"}
		p.pos++
	case c == '(':
		p.tok = token{kind: tokLParen, text: "("}
		p.pos++
	case c == ')':
		p.tok = token{kind: tokRParen, text: ")"}
		p.pos++
	case c == ',':
		p.tok = token{kind: tokComma, text: ","}
		p.pos++
	default:
		p.tok = token{kind: tokIdent, text: string(c)} // rejected by parsePrimary
		p.pos++
	}
}

// operator precedence; ** is right-associative and binds tighter than
// unary minus (as in the source formulas: -2**2 == -4)
const (
	precAdd   = 1
	precMul   = 2
	precUnary = 3
	precPow   = 4
)

func opPrec(kind tokenKind) int {
	switch kind {
	case tokPlus, tokMinus:
		return precAdd
	case tokStar, tokSlash:
		return precMul
	case tokPow:
		return precPow
	}
	return 0
}

func (p *formulaParser) parseExpr(minPrec int) (float64, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}

	for {
		prec := opPrec(p.tok.kind)
		if prec == 0 || prec <= minPrec {
			return lhs, nil
		}
		op := p.tok.kind
		p.next()

		rhsMin := prec
		if op == tokPow { // right-associative
			rhsMin = prec - 1
		}
		rhs, err := p.parseExpr(rhsMin)
		if err != nil {
			return 0, err
		}

		switch op {
		case tokPlus:
			lhs += rhs
		case tokMinus:
			lhs -= rhs
		case tokStar:
			lhs *= rhs
		case tokSlash:
			if rhs == 0 {
				return 0, p.errorf("division by zero")
			}
			lhs /= rhs
		case tokPow:
			lhs = math.Pow(lhs, rhs)
		}
	}
}

func (p *formulaParser) parsePrimary() (float64, error) {
	switch p.tok.kind {
	case tokNumber:
		if math.IsNaN(p.tok.num) {
			return 0, p.errorf("bad number %q", p.tok.text)
		}
		val := p.tok.num
		p.next()
		return val, nil

	case tokVar:
		if strings.HasPrefix(p.tok.text, "{") {
			return 0, p.errorf("unterminated variable reference")
		}
		val, ok := p.bindings[p.tok.text]
		if !ok {
			return 0, p.errorf("unknown variable %q", p.tok.text)
		}
		p.next()
		return val, nil

	case tokMinus:
		p.next()
		// operand parsed above * so that ** still binds tighter
		val, err := p.parseExpr(precUnary - 1)
		if err != nil {
			return 0, err
		}
		return -val, nil

	case tokLParen:
		p.next()
		val, err := p.parseExpr(0)
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokRParen {
			return 0, p.errorf("missing closing parenthesis")
		}
		p.next()
		return val, nil

	case tokIdent:
		name := p.tok.text
		if name != "min" && name != "max" {
			// bare identifiers are not variables; only {name} references
			// and the two allow-listed functions exist
			if _, ok := p.bindings[name]; ok {
				val := p.bindings[name]
				p.next()
				return val, nil
			}
			return 0, p.errorf("unknown identifier %q", name)
		}
		p.next()
		if p.tok.kind != tokLParen {
			return 0, p.errorf("%s must be called with two arguments", name)
		}
		p.next()
		a, err := p.parseExpr(0)
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokComma {
			return 0, p.errorf("%s expects two arguments", name)
		}
		p.next()
		b, err := p.parseExpr(0)
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokRParen {
			return 0, p.errorf("missing closing parenthesis in %s call", name)
		}
		p.next()
		if name == "min" {
			return math.Min(a, b), nil
		}
		return math.Max(a, b), nil

	case tokEOF:
		return 0, p.errorf("unexpected end of formula")

	default:
		return 0, p.errorf("unexpected %q", p.tok.text)
	}
}
