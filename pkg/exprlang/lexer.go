// Package exprlang analyzes the `${{ ... }}` expression mini-language:
// dotted and indexed property access on a fixed set of context names,
// string/number/boolean literals, comparison and logical operators, and
// calls to a fixed set of built-in functions.
//
// The package receives one expression's inner text (already extracted by
// astquery.FindExpressions) and reports issues; it never touches the CST.
package exprlang

import (
	"errors"
	"fmt"
)

// TokenKind classifies a lexed token.
type TokenKind uint8

const (
	TokenIdent TokenKind = iota
	TokenNumber
	TokenString
	TokenOperator // == != <= >= < > && || !
	TokenDot
	TokenComma
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenIllegal
)

// Token is one lexed token with its byte position in the expression text.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

var errUnterminatedString = errors.New("unterminated string literal")

// Lex tokenizes an expression's inner text. Characters that cannot start
// any token, and JavaScript-isms like `===` or a bare `=`, come back as
// TokenIllegal so the analyzer can attribute a precise message. The only
// hard failure is an unterminated string literal.
func Lex(input string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"':
			start := i
			i++
			closed := false
			for i < len(input) {
				if input[i] == '\\' && c == '"' {
					i += 2
					continue
				}
				if input[i] == c {
					// Single-quoted strings escape the quote by doubling it.
					if c == '\'' && i+1 < len(input) && input[i+1] == '\'' {
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				i++
			}
			if !closed {
				return tokens, errUnterminatedString
			}
			tokens = append(tokens, Token{Kind: TokenString, Text: input[start:i], Pos: start})
		case c >= '0' && c <= '9':
			start := i
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.' || input[i] == 'x' ||
				input[i] == 'e' || input[i] == 'E' || input[i] >= 'a' && input[i] <= 'f' || input[i] >= 'A' && input[i] <= 'F') {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenNumber, Text: input[start:i], Pos: start})
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenIdent, Text: input[start:i], Pos: start})
		case c == '.':
			tokens = append(tokens, Token{Kind: TokenDot, Text: ".", Pos: i})
			i++
		case c == ',':
			tokens = append(tokens, Token{Kind: TokenComma, Text: ",", Pos: i})
			i++
		case c == '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: i})
			i++
		case c == ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: i})
			i++
		case c == '[':
			tokens = append(tokens, Token{Kind: TokenLBracket, Text: "[", Pos: i})
			i++
		case c == ']':
			tokens = append(tokens, Token{Kind: TokenRBracket, Text: "]", Pos: i})
			i++
		case c == '=' || c == '!' || c == '<' || c == '>' || c == '&' || c == '|':
			tok, width := lexOperator(input, i)
			tokens = append(tokens, tok)
			i += width
		case c == '-':
			// Negative number literal; the expression language has no
			// arithmetic operators.
			if i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9' {
				start := i
				i++
				for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
					i++
				}
				tokens = append(tokens, Token{Kind: TokenNumber, Text: input[start:i], Pos: start})
			} else {
				tokens = append(tokens, Token{Kind: TokenIllegal, Text: "-", Pos: i})
				i++
			}
		case c == '*':
			// Object filter syntax: github.event.*.name
			tokens = append(tokens, Token{Kind: TokenIdent, Text: "*", Pos: i})
			i++
		default:
			tokens = append(tokens, Token{Kind: TokenIllegal, Text: string(c), Pos: i})
			i++
		}
	}
	return tokens, nil
}

func lexOperator(input string, i int) (Token, int) {
	rest := input[i:]
	for _, op := range []string{"===", "!=="} {
		if hasPrefix(rest, op) {
			return Token{Kind: TokenIllegal, Text: op, Pos: i}, len(op)
		}
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "&&", "||"} {
		if hasPrefix(rest, op) {
			return Token{Kind: TokenOperator, Text: op, Pos: i}, 2
		}
	}
	switch rest[0] {
	case '!', '<', '>':
		return Token{Kind: TokenOperator, Text: rest[:1], Pos: i}, 1
	}
	// A lone '=' (assignment) or '&'/'|' is not part of the language.
	return Token{Kind: TokenIllegal, Text: rest[:1], Pos: i}, 1
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '-'
}

func (k TokenKind) String() string {
	switch k {
	case TokenIdent:
		return "ident"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenOperator:
		return "operator"
	case TokenDot:
		return "dot"
	case TokenComma:
		return "comma"
	case TokenLParen:
		return "lparen"
	case TokenRParen:
		return "rparen"
	case TokenLBracket:
		return "lbracket"
	case TokenRBracket:
		return "rbracket"
	case TokenIllegal:
		return "illegal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}
