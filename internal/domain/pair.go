// Package domain defines the value types shared by the ladder engine, the
// exchange adapters and the reporting layers.
package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Pair cryptocurrency trading pair.
type Pair struct {
	// From base currency symbol.
	From string `json:"from"`
	// To quote currency symbol.
	To string `json:"to"`
}

// ParsePair parses a BASE_QUOTE string, e.g. BTC_USDT.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(strings.TrimSpace(s), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, errors.Wrapf(ErrConfiguration, "invalid pair %q, expected BASE_QUOTE", s)
	}

	return Pair{From: strings.ToUpper(parts[0]), To: strings.ToUpper(parts[1])}, nil
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}
