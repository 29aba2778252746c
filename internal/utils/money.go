package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney converts a display amount like "$1,234.56" into a decimal by
// dropping currency symbols and group separators. The dot is the only
// recognized decimal mark, matching how Discogs renders values.
func ParseMoney(display string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(display) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return decimal.Zero, fmt.Errorf("no numeric content in %q", display)
	}

	value, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q: %w", display, err)
	}
	return value, nil
}
