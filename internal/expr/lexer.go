package expr

import (
	"fmt"
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of equation"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokCaret:
		return "'^'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	default:
		return "unknown token"
	}
}

type token struct {
	kind   tokenKind
	text   string
	num    float64
	offset int // rune offset
}

// lex splits normalized equation text into tokens.
func lex(src []rune) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r := src[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			toks = append(toks, token{kind: tokPlus, text: "+", offset: i})
			i++
		case r == '-':
			toks = append(toks, token{kind: tokMinus, text: "-", offset: i})
			i++
		case r == '*':
			if i+1 < len(src) && src[i+1] == '*' {
				toks = append(toks, token{kind: tokCaret, text: "**", offset: i})
				i += 2
				continue
			}
			toks = append(toks, token{kind: tokStar, text: "*", offset: i})
			i++
		case r == '/':
			toks = append(toks, token{kind: tokSlash, text: "/", offset: i})
			i++
		case r == '^':
			toks = append(toks, token{kind: tokCaret, text: "^", offset: i})
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", offset: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", offset: i})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, text: ",", offset: i})
			i++
		case isDigit(r) || (r == '.' && i+1 < len(src) && isDigit(src[i+1])):
			tok, next, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case isIdentStart(r):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(src[start:i]), offset: start})
		default:
			return nil, &ParseError{Offset: i, Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	toks = append(toks, token{kind: tokEOF, offset: len(src)})
	return toks, nil
}

func lexNumber(src []rune, start int) (token, int, error) {
	i := start
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j >= len(src) || !isDigit(src[j]) {
			return token{}, 0, &ParseError{Offset: i, Message: "malformed exponent in number"}
		}
		for j < len(src) && isDigit(src[j]) {
			j++
		}
		i = j
	}
	text := string(src[start:i])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, 0, &ParseError{Offset: start, Message: fmt.Sprintf("number %s out of range", text)}
	}
	if i < len(src) && isIdentStart(src[i]) {
		return token{}, 0, &ParseError{Offset: i, Message: fmt.Sprintf("unexpected %q after number", src[i])}
	}
	return token{kind: tokNumber, text: text, num: v, offset: start}, i, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
