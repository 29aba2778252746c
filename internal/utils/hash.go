package utils

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// CanonicalJSON re-encodes raw JSON with object keys sorted at every
// nesting level, so two encodings of the same document always compare
// equal byte for byte.
func CanonicalJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}

	return canonical, nil
}

// CanonicalHash returns the hex SHA-256 of the canonical JSON encoding of raw.
func CanonicalHash(raw []byte) (string, error) {
	canonical, err := CanonicalJSON(raw)
	if err != nil {
		return "", fmt.Errorf("canonical hash: %w", err)
	}

	return HashBytes(canonical), nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// HashFields creates a deterministic hash from a map of fields. Map keys are
// sorted by json.Marshal, so insertion order never changes the result.
func HashFields(fields map[string]any) string {
	jsonBytes, err := json.Marshal(fields)
	if err != nil {
		jsonBytes = []byte("{}")
	}

	hash := sha256.Sum256(jsonBytes)
	return fmt.Sprintf("%x", hash)
}

// CompareHashes compares two hash strings for equality
func CompareHashes(hash1, hash2 string) bool {
	return hash1 == hash2
}

// ValidateHash checks if a hash string is valid (64 character hex string)
func ValidateHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}

	for _, char := range hash {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f')) {
			return false
		}
	}

	return true
}
