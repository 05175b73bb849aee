package parse

import (
	"fmt"
	"strings"
)

// Caps is a parsed media description, e.g.
// other/tensor,dimension=(string)3:224:224:1,type=(string)uint8.
type Caps struct {
	MediaType string
	Fields    map[string]string
}

// ParseCaps parses caps string. Type annotations like "(string)" and
// quotes are stripped from values.
func ParseCaps(s string) (Caps, error) {
	parts, err := splitFields(unquote(strings.TrimSpace(s)))
	if err != nil {
		return Caps{}, err
	}
	c := Caps{
		MediaType: strings.TrimSpace(parts[0]),
		Fields:    make(map[string]string, len(parts)-1),
	}
	if c.MediaType == "" || !strings.Contains(c.MediaType, "/") {
		return Caps{}, fmt.Errorf("%w: invalid media type in caps %q", ErrSyntax, s)
	}
	for _, f := range parts[1:] {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Caps{}, fmt.Errorf("%w: invalid field %q in caps %q", ErrSyntax, f, s)
		}
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, "(") {
			if end := strings.IndexByte(value, ')'); end > 0 {
				value = value[end+1:]
			}
		}
		c.Fields[key] = unquote(value)
	}
	return c, nil
}

// splitFields splits caps by commas which are not quoted.
func splitFields(s string) ([]string, error) {
	var (
		parts  []string
		quoted bool
		start  int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote in caps %q", ErrSyntax, s)
	}
	return append(parts, s[start:]), nil
}
