package filter

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenString
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenString:
		return fmt.Sprintf("%q", t.text)
	}
	return fmt.Sprintf("'%s'", t.text)
}

// keyword retorna a palavra reservada em minúsculas, ou "" se o token não for uma
func (t token) keyword() string {
	if t.kind != tokenWord {
		return ""
	}
	switch w := strings.ToLower(t.text); w {
	case "eq", "ne", "gt", "lt", "and", "or":
		return w
	}
	return ""
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		case r == '"' || r == '\'':
			quote := r
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if c == quote {
					closed = true
					i++
					break
				}
				sb.WriteRune(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string starting at position %d", start)
			}
			tokens = append(tokens, token{kind: tokenString, text: sb.String(), pos: start})
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) && !strings.ContainsRune(`()"'`, runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenWord, text: string(runes[start:i]), pos: start})
		}
	}

	return tokens, nil
}
