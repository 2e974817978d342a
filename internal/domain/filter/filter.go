// Package filter traduz a linguagem de filtros das listagens
// (eq, ne, gt, lt, and, or e parênteses) em uma árvore de predicados
// restrita a um conjunto fixo de campos.
package filter

import (
	"strconv"
	"strings"

	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
)

// maxDepth limita o aninhamento de parênteses
const maxDepth = 32

// Kind é o tipo do valor de um campo filtrável
type Kind int

const (
	KindString Kind = iota
	KindInt
)

// FieldSet mapeia os nomes de campo aceitos para o seu tipo
type FieldSet map[string]Kind

// Campos filtráveis por entidade
var (
	UserFields = FieldSet{
		"email":                  KindString,
		"name":                   KindString,
		"surname":                KindString,
		"role":                   KindString,
		"expectedCaloriesPerDay": KindInt,
	}
	RecordFields = FieldSet{
		"userEmail":        KindString,
		"date":             KindString,
		"time":             KindString,
		"text":             KindString,
		"numberOfCalories": KindInt,
	}
)

// Op é um operador de comparação
type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpGt Op = "gt"
	OpLt Op = "lt"
)

// Logic é um conectivo lógico
type Logic string

const (
	And Logic = "and"
	Or  Logic = "or"
)

// Expr é um nó da árvore de predicados
type Expr interface {
	expr()
}

// Value é um literal tipado
type Value struct {
	Kind Kind
	Str  string
	Int  int64
}

// Interface retorna o literal como string ou int64
func (v Value) Interface() interface{} {
	if v.Kind == KindInt {
		return v.Int
	}
	return v.Str
}

// Comparison compara um campo com um literal
type Comparison struct {
	Field string
	Op    Op
	Value Value
}

// Logical combina duas expressões
type Logical struct {
	Op    Logic
	Left  Expr
	Right Expr
}

func (Comparison) expr() {}
func (Logical) expr()    {}

// Parse interpreta a expressão; entrada vazia devolve nil sem erro
func Parse(input string, fields FieldSet) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	tokens, err := tokenize(input)
	if err != nil {
		return nil, invalid(err.Error())
	}

	p := &parser{tokens: tokens, fields: fields}
	e, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t.kind == tokenRParen {
			return nil, invalid("unbalanced parenthesis")
		}
		return nil, invalid("unexpected token " + t.String())
	}
	return e, nil
}

type parser struct {
	tokens []token
	pos    int
	fields FieldSet
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) parseOr(depth int) (Expr, error) {
	left, err := p.parseAnd(depth)
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.keyword() != "or" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd(depth)
		if err != nil {
			return nil, err
		}
		left = Logical{Op: Or, Left: left, Right: right}
	}
}

func (p *parser) parseAnd(depth int) (Expr, error) {
	left, err := p.parsePrimary(depth)
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.keyword() != "and" {
			return left, nil
		}
		p.pos++
		right, err := p.parsePrimary(depth)
		if err != nil {
			return nil, err
		}
		left = Logical{Op: And, Left: left, Right: right}
	}
}

func (p *parser) parsePrimary(depth int) (Expr, error) {
	t, ok := p.next()
	if !ok {
		return nil, invalid("unexpected end of filter")
	}

	switch t.kind {
	case tokenLParen:
		if depth >= maxDepth {
			return nil, invalid("filter nested too deeply")
		}
		e, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.kind != tokenRParen {
			return nil, invalid("unbalanced parenthesis")
		}
		return e, nil
	case tokenRParen:
		return nil, invalid("unbalanced parenthesis")
	case tokenString:
		return nil, invalid("expected field name, got " + t.String())
	}

	if t.keyword() != "" {
		return nil, invalid("expected field name, got " + t.String())
	}
	kind, known := p.fields[t.text]
	if !known {
		return nil, invalid("unknown field '" + t.text + "'")
	}

	opTok, ok := p.next()
	if !ok {
		return nil, invalid("missing operator after '" + t.text + "'")
	}
	var op Op
	switch opTok.keyword() {
	case "eq", "ne", "gt", "lt":
		op = Op(opTok.keyword())
	default:
		return nil, invalid("expected operator after '" + t.text + "', got " + opTok.String())
	}

	valTok, ok := p.next()
	if !ok {
		return nil, invalid("missing value after '" + t.text + " " + string(op) + "'")
	}
	value, err := parseValue(valTok, kind, t.text)
	if err != nil {
		return nil, err
	}

	return Comparison{Field: t.text, Op: op, Value: value}, nil
}

func parseValue(t token, kind Kind, field string) (Value, error) {
	if t.kind == tokenLParen || t.kind == tokenRParen || t.keyword() != "" {
		return Value{}, invalid("expected value for '" + field + "', got " + t.String())
	}

	if kind == KindInt {
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return Value{}, invalid("field '" + field + "' requires an integer value")
		}
		return Value{Kind: KindInt, Int: n}, nil
	}

	return Value{Kind: KindString, Str: t.text}, nil
}

func invalid(msg string) error {
	return apierrors.BadRequest("Invalid filter: "+msg, nil)
}
