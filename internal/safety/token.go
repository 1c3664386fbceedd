// File path: internal/safety/token.go
package safety

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuotedIdent
	tokString
	tokNumber
	tokPunct
	tokSemicolon
)

type token struct {
	kind  tokenKind
	text  string
	upper string
	start int
	end   int
}

// tokenize splits SQL text into structural tokens. Comments are dropped,
// string literals and quoted identifiers are kept as single tokens, so later
// passes see only the statement structure and cannot be fooled by keywords
// hidden in literals, comments or alternate casing.
func tokenize(input string) ([]token, error) {
	runes := []rune(input)
	var tokens []token
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			end := strings.Index(string(runes[i+2:]), "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated block comment")
			}
			i += 2 + end + 2
		case r == '\'':
			start := i
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal")
			}
			text := string(runes[start:i])
			tokens = append(tokens, token{kind: tokString, text: text, start: start, end: i})
		case r == '"', r == '`':
			quote := r
			start := i
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == quote {
					if quote == '"' && i+1 < len(runes) && runes[i+1] == '"' {
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quoted identifier")
			}
			raw := string(runes[start:i])
			inner := strings.Trim(raw, string(quote))
			if quote == '"' {
				inner = strings.ReplaceAll(inner, `""`, `"`)
			}
			tokens = append(tokens, token{kind: tokQuotedIdent, text: inner, upper: strings.ToUpper(inner), start: start, end: i})
		case r == '[':
			start := i
			i++
			for i < len(runes) && runes[i] != ']' {
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated bracketed identifier")
			}
			inner := string(runes[start+1 : i])
			i++
			tokens = append(tokens, token{kind: tokQuotedIdent, text: inner, upper: strings.ToUpper(inner), start: start, end: i})
		case isWordStart(r):
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			text := string(runes[start:i])
			tokens = append(tokens, token{kind: tokWord, text: text, upper: strings.ToUpper(text), start: start, end: i})
		case unicode.IsDigit(r):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' ||
				runes[i] == 'e' || runes[i] == 'E' || runes[i] == 'x' || runes[i] == 'X' ||
				(runes[i] >= 'a' && runes[i] <= 'f') || (runes[i] >= 'A' && runes[i] <= 'F')) {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), start: start, end: i})
		case r == ';':
			tokens = append(tokens, token{kind: tokSemicolon, text: ";", start: i, end: i + 1})
			i++
		default:
			tokens = append(tokens, token{kind: tokPunct, text: string(r), start: i, end: i + 1})
			i++
		}
	}
	return tokens, nil
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
