// Package fhirpath implements the subset of the FHIRPath expression language
// (https://hl7.org/fhirpath/) needed to extract values from FHIR resources and bundles:
// resource type roots, %variable roots, field navigation, where() predicates with
// = and != comparisons, first(), last(), exists(), count(), empty(), not() and indexing.
// Expressions evaluate against JSON-decoded resource trees and always yield a collection.
package fhirpath

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Expression is a parsed FHIRPath expression, ready for evaluation.
type Expression struct {
	ast    *node
	source string
}

func (e *Expression) String() string {
	return e.source
}

// Parse parses the given FHIRPath expression.
func Parse(expression string) (*Expression, error) {
	p := &parser{lex: &lexer{input: expression}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	ast, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tkEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", p.tok.value, p.tok.pos)
	}
	return &Expression{ast: ast, source: expression}, nil
}

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkIdent
	tkNumber
	tkString
	tkDot
	tkLParen
	tkRParen
	tkLBracket
	tkRBracket
	tkComma
	tkPercent
	tkEq
	tkNe
)

type token struct {
	kind  tokenKind
	value string
	pos   int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tkEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.input[l.pos]
	switch {
	case c == '.':
		l.pos++
		return token{kind: tkDot, value: ".", pos: start}, nil
	case c == '(':
		l.pos++
		return token{kind: tkLParen, value: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tkRParen, value: ")", pos: start}, nil
	case c == '[':
		l.pos++
		return token{kind: tkLBracket, value: "[", pos: start}, nil
	case c == ']':
		l.pos++
		return token{kind: tkRBracket, value: "]", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tkComma, value: ",", pos: start}, nil
	case c == '%':
		l.pos++
		return token{kind: tkPercent, value: "%", pos: start}, nil
	case c == '=':
		l.pos++
		return token{kind: tkEq, value: "=", pos: start}, nil
	case c == '!':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return token{kind: tkNe, value: "!=", pos: start}, nil
		}
		return token{}, fmt.Errorf("unexpected character %q at position %d", c, start)
	case c == '\'':
		return l.stringLiteral()
	case unicode.IsDigit(rune(c)):
		return l.number()
	case unicode.IsLetter(rune(c)) || c == '_':
		return l.identifier()
	default:
		return token{}, fmt.Errorf("unexpected character %q at position %d", c, start)
	}
}

func (l *lexer) stringLiteral() (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '\\':
			if l.pos+1 >= len(l.input) {
				return token{}, fmt.Errorf("unterminated string literal at position %d", start)
			}
			l.pos++
			sb.WriteByte(l.input[l.pos])
			l.pos++
		case '\'':
			l.pos++
			return token{kind: tkString, value: sb.String(), pos: start}, nil
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, fmt.Errorf("unterminated string literal at position %d", start)
}

func (l *lexer) number() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' && l.pos+1 < len(l.input) && unicode.IsDigit(rune(l.input[l.pos+1])) {
		l.pos++
		for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
			l.pos++
		}
	}
	return token{kind: tkNumber, value: l.input[start:l.pos], pos: start}, nil
}

func (l *lexer) identifier() (token, error) {
	start := l.pos
	for l.pos < len(l.input) {
		c := rune(l.input[l.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
			break
		}
		l.pos++
	}
	return token{kind: tkIdent, value: l.input[start:l.pos], pos: start}, nil
}

type nodeKind int

const (
	ndLiteral nodeKind = iota
	ndRoot
	ndVariable
	ndField
	ndFunction
	ndIndex
	ndCompare
)

type node struct {
	kind  nodeKind
	name  string      // identifier, function name, or comparison operator
	value interface{} // literal value
	child *node       // receiver of field/function/index nodes
	args  []*node     // function arguments
	index int         // index for ndIndex nodes
	left  *node       // comparison operands
	right *node
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseExpression() (*node, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tkEq || p.tok.kind == tkNe {
		op := p.tok.value
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		left = &node{kind: ndCompare, name: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parsePostfix() (*node, error) {
	result, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.kind {
		case tkDot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tkIdent {
				return nil, fmt.Errorf("expected identifier after '.' at position %d", p.tok.pos)
			}
			name := p.tok.value
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind == tkLParen {
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				result = &node{kind: ndFunction, name: name, child: result, args: args}
			} else {
				result = &node{kind: ndField, name: name, child: result}
			}
		case tkLBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tkNumber {
				return nil, fmt.Errorf("expected index number at position %d", p.tok.pos)
			}
			index, err := strconv.Atoi(p.tok.value)
			if err != nil {
				return nil, fmt.Errorf("invalid index %q at position %d", p.tok.value, p.tok.pos)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tkRBracket {
				return nil, fmt.Errorf("expected ']' at position %d", p.tok.pos)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			result = &node{kind: ndIndex, child: result, index: index}
		default:
			return result, nil
		}
	}
}

func (p *parser) parseArguments() ([]*node, error) {
	// p.tok is the opening parenthesis
	if err := p.advance(); err != nil {
		return nil, err
	}
	var args []*node
	if p.tok.kind == tkRParen {
		return args, p.advance()
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch p.tok.kind {
		case tkComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tkRParen:
			return args, p.advance()
		default:
			return nil, fmt.Errorf("expected ',' or ')' at position %d", p.tok.pos)
		}
	}
}

func (p *parser) parsePrimary() (*node, error) {
	switch p.tok.kind {
	case tkPercent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tkIdent {
			return nil, fmt.Errorf("expected variable name after '%%' at position %d", p.tok.pos)
		}
		result := &node{kind: ndVariable, name: p.tok.value}
		return result, p.advance()
	case tkIdent:
		result := &node{kind: ndRoot, name: p.tok.value}
		return result, p.advance()
	case tkString:
		result := &node{kind: ndLiteral, value: p.tok.value}
		return result, p.advance()
	case tkNumber:
		value, err := strconv.ParseFloat(p.tok.value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", p.tok.value, p.tok.pos)
		}
		result := &node{kind: ndLiteral, value: value}
		return result, p.advance()
	default:
		return nil, fmt.Errorf("unexpected %q at position %d", p.tok.value, p.tok.pos)
	}
}
