package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	testCases := []struct {
		name    string
		display string
		want    string
	}{
		{"dollar with group separator", "$1,234.56", "1234.56"},
		{"plain dollars", "$85.00", "85"},
		{"no cents", "$1,234", "1234"},
		{"pound symbol", "£9.99", "9.99"},
		{"euro symbol", "€120.50", "120.5"},
		{"negative amount", "-$5.00", "-5"},
		{"surrounding whitespace", "  $ 12.50  ", "12.5"},
		{"bare number", "42", "42"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			value, err := ParseMoney(tc.display)
			require.NoError(t, err)
			assert.Equal(t, tc.want, value.String())
		})
	}
}

func TestParseMoney_RejectsNonNumeric(t *testing.T) {
	testCases := []struct {
		name    string
		display string
	}{
		{"empty", ""},
		{"words only", "free"},
		{"currency symbol only", "$"},
		{"multiple decimal points", "1.2.3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMoney(tc.display)
			assert.Error(t, err)
		})
	}
}
