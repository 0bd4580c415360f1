package coin

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSymbol is returned when user input cannot be turned into a Symbol.
var ErrInvalidSymbol = errors.New("invalid coin symbol")

// Symbol is a normalized (uppercase) coin ticker such as "BTC".
type Symbol string

func (s Symbol) String() string { return string(s) }

// Parse trims and uppercases raw input and checks that it only contains
// letters and digits.
func Parse(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSymbol)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
		}
	}
	return Symbol(s), nil
}

// ParseAll parses every entry of raw, failing on the first invalid one.
func ParseAll(raw []string) ([]Symbol, error) {
	out := make([]Symbol, 0, len(raw))
	for _, r := range raw {
		s, err := Parse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Strings converts symbols back to plain strings, preserving order.
func Strings(symbols []Symbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = string(s)
	}
	return out
}
