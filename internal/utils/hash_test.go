package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalHash_StableUnderKeyReordering(t *testing.T) {
	first := []byte(`{"id":"123","name":"Nirvana","genres":["Rock"]}`)
	second := []byte(`{"genres":["Rock"],"name":"Nirvana","id":"123"}`)

	hashFirst, err := CanonicalHash(first)
	require.NoError(t, err)
	hashSecond, err := CanonicalHash(second)
	require.NoError(t, err)

	assert.Equal(t, hashFirst, hashSecond)
	assert.True(t, ValidateHash(hashFirst))
}

func TestCanonicalHash_NestedKeyReordering(t *testing.T) {
	first := []byte(`{"id":"9","artist":{"name":"Unknown","id":"4"},"styles":["Grunge","Punk"]}`)
	second := []byte(`{"styles":["Grunge","Punk"],"id":"9","artist":{"id":"4","name":"Unknown"}}`)

	hashFirst, err := CanonicalHash(first)
	require.NoError(t, err)
	hashSecond, err := CanonicalHash(second)
	require.NoError(t, err)

	assert.Equal(t, hashFirst, hashSecond)
}

func TestCanonicalHash_WhitespaceInsensitive(t *testing.T) {
	compact := []byte(`{"id":"123","name":"Nirvana"}`)
	spaced := []byte(`{
		"id":   "123",
		"name": "Nirvana"
	}`)

	hashCompact, err := CanonicalHash(compact)
	require.NoError(t, err)
	hashSpaced, err := CanonicalHash(spaced)
	require.NoError(t, err)

	assert.Equal(t, hashCompact, hashSpaced)
}

func TestCanonicalHash_DifferentContent(t *testing.T) {
	first := []byte(`{"id":"123","name":"Nirvana"}`)
	second := []byte(`{"id":"123","name":"Nirvana","profile":"Seattle band"}`)

	hashFirst, err := CanonicalHash(first)
	require.NoError(t, err)
	hashSecond, err := CanonicalHash(second)
	require.NoError(t, err)

	assert.NotEqual(t, hashFirst, hashSecond)
}

func TestCanonicalHash_InvalidJSON(t *testing.T) {
	_, err := CanonicalHash([]byte(`{"id": "123"`))
	assert.Error(t, err)

	_, err = CanonicalHash([]byte(`not json at all`))
	assert.Error(t, err)
}

func TestHashFields_OrderIndependent(t *testing.T) {
	hash1 := HashFields(map[string]any{"name": "Nirvana", "id": "125246"})
	hash2 := HashFields(map[string]any{"id": "125246", "name": "Nirvana"})

	assert.Equal(t, hash1, hash2)
	assert.True(t, ValidateHash(hash1))
}

func TestCompareHashes(t *testing.T) {
	hash := HashFields(map[string]any{"id": "1"})
	other := HashFields(map[string]any{"id": "2"})

	assert.True(t, CompareHashes(hash, hash))
	assert.False(t, CompareHashes(hash, other))
}

func TestValidateHash(t *testing.T) {
	testCases := []struct {
		name  string
		hash  string
		valid bool
	}{
		{"valid lowercase hex", "a3f5b8c2d4e6f8a0b2c4d6e8f0a2b4c6d8e0f2a4b6c8d0e2f4a6b8c0d2e4f6a8", true},
		{"too short", "abc123", false},
		{"too long", "a3f5b8c2d4e6f8a0b2c4d6e8f0a2b4c6d8e0f2a4b6c8d0e2f4a6b8c0d2e4f6a8ff", false},
		{"uppercase rejected", "A3F5B8C2D4E6F8A0B2C4D6E8F0A2B4C6D8E0F2A4B6C8D0E2F4A6B8C0D2E4F6A8", false},
		{"non-hex characters", "z3f5b8c2d4e6f8a0b2c4d6e8f0a2b4c6d8e0f2a4b6c8d0e2f4a6b8c0d2e4f6a8", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, ValidateHash(tc.hash))
		})
	}
}
