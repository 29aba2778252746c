package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		offset int
	}{
		{"zero", 0},
		{"single page", 25},
		{"large offset", 99950},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token := EncodeCursor(tc.offset)
			require.NotEmpty(t, token)
			assert.Equal(t, tc.offset, DecodeCursor(token))
		})
	}
}

func TestDecodeCursor_EmptyString(t *testing.T) {
	assert.Equal(t, 0, DecodeCursor(""))
}

func TestDecodeCursor_GarbageFallsBackToFirstPage(t *testing.T) {
	testCases := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!!not-a-cursor!!!"},
		{"base64 of non-json", base64.URLEncoding.EncodeToString([]byte("hello"))},
		{"truncated json", base64.URLEncoding.EncodeToString([]byte(`{"offset":`))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, 0, DecodeCursor(tc.cursor))
		})
	}
}

func TestDecodeCursor_NegativeOffsetClamped(t *testing.T) {
	token := base64.URLEncoding.EncodeToString([]byte(`{"offset":-50}`))
	assert.Equal(t, 0, DecodeCursor(token))
}

func TestDecodeCursor_AcceptsUnpaddedTokens(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"offset":75}`))
	assert.Equal(t, 75, DecodeCursor(token))
}

func TestNextCursor_FullPageAdvances(t *testing.T) {
	next := NextCursor(50, 25, 25)
	require.NotNil(t, next)
	assert.Equal(t, 75, DecodeCursor(*next))
}

func TestNextCursor_ShortPageEnds(t *testing.T) {
	assert.Nil(t, NextCursor(50, 25, 24))
	assert.Nil(t, NextCursor(0, 25, 0))
}
