package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanUTF8_ValidStringUntouched(t *testing.T) {
	cleaned, changed := CleanUTF8("Sígur Rós — Ágætis byrjun")
	assert.Equal(t, "Sígur Rós — Ágætis byrjun", cleaned)
	assert.False(t, changed)
}

func TestCleanUTF8_StripsNullBytes(t *testing.T) {
	cleaned, changed := CleanUTF8("AC\x00/DC")
	assert.Equal(t, "AC/DC", cleaned)
	assert.True(t, changed)
}

func TestCleanUTF8_DropsInvalidSequences(t *testing.T) {
	cleaned, changed := CleanUTF8("Bj\xff\xfeork")
	assert.Equal(t, "Bjork", cleaned)
	assert.True(t, changed)
}

func TestCleanUTF8_EmptyString(t *testing.T) {
	cleaned, changed := CleanUTF8("")
	assert.Equal(t, "", cleaned)
	assert.False(t, changed)
}
