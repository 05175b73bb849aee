package parse

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenType int

const (
	linkToken     tokenType = iota // !
	elementToken                   // tensor_filter
	propertyToken                  // key=value
	refToken                       // name.pad
	capsToken                      // other/tensor,type=uint8
)

type token struct {
	tokenType
	text string
	pos  int
}

func (t tokenType) String() string {
	switch t {
	case linkToken:
		return "link"
	case elementToken:
		return "element"
	case propertyToken:
		return "property"
	case refToken:
		return "reference"
	case capsToken:
		return "caps"
	}
	return "unknown"
}

// lex splits the description into tokens. Whitespace separates tokens,
// double quotes group text with spaces and are kept in the token. The
// link separator doesn't need surrounding spaces.
func lex(s string) ([]token, error) {
	var (
		tokens []token
		b      strings.Builder
		start  = -1
		quoted bool
	)
	flush := func() {
		if b.Len() > 0 {
			text := b.String()
			tokens = append(tokens, token{tokenType: classify(text), text: text, pos: start})
			b.Reset()
		}
		start = -1
	}
	for i, r := range s {
		switch {
		case quoted:
			b.WriteRune(r)
			if r == '"' {
				quoted = false
			}
		case r == '"':
			if start < 0 {
				start = i
			}
			quoted = true
			b.WriteRune(r)
		case r == '!':
			flush()
			tokens = append(tokens, token{tokenType: linkToken, text: "!", pos: i})
		case unicode.IsSpace(r):
			flush()
		default:
			if start < 0 {
				start = i
			}
			b.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote at %d", ErrSyntax, start)
	}
	flush()
	return tokens, nil
}

func classify(text string) tokenType {
	eq := strings.IndexByte(text, '=')
	head := text
	if c := strings.IndexByte(text, ','); c >= 0 {
		head = text[:c]
	}
	switch {
	case strings.Contains(head, "/") && !strings.Contains(head, "="):
		return capsToken
	case eq > 0:
		return propertyToken
	case isRef(text):
		return refToken
	}
	return elementToken
}

func isRef(text string) bool {
	dot := strings.IndexByte(text, '.')
	if dot <= 0 || strings.Count(text, ".") != 1 {
		return false
	}
	return isIdent(text[:dot]) && (dot == len(text)-1 || isIdent(text[dot+1:]))
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '%') {
			return false
		}
	}
	return true
}

// unquote removes surrounding double quotes.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
