package expr

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokCaret
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNumber:
		return "number"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	default:
		return "operator"
	}
}

type token struct {
	kind  tokenKind
	value float64
	text  string
	pos   int
}

// tokenize splits src into tokens. "x", "×" and "÷" are accepted as
// multiplication and division so plain-language input works.
func tokenize(src string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
			continue
		case r < utf8.RuneSelf && (isDigit(byte(r)) || r == '.'):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("invalid number %q", text)}
			}
			tokens = append(tokens, token{kind: tokNumber, value: v, text: text, pos: start})
			continue
		}

		kind, ok := operators[r]
		if !ok {
			return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
		tokens = append(tokens, token{kind: kind, text: string(r), pos: i})
		i += size
	}
	return append(tokens, token{kind: tokEOF, pos: len(src)}), nil
}

var operators = map[rune]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'x': tokStar,
	'X': tokStar,
	'×': tokStar,
	'/': tokSlash,
	'÷': tokSlash,
	'%': tokPercent,
	'^': tokCaret,
	'(': tokLParen,
	')': tokRParen,
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
