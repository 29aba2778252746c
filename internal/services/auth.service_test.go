package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"waxworks/config"
	"waxworks/internal/database"
	"waxworks/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 32 bytes of hex for AES-256-GCM.
const testEncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestAuthService(t *testing.T, encryptionKey string) *AuthService {
	t.Helper()

	service, err := NewAuthService(config.Config{
		JWTSecretKey:       "test-jwt-secret",
		OAuthEncryptionKey: encryptionKey,
	}, database.DB{})
	require.NoError(t, err)
	return service
}

func TestNewAuthService_RequiresJWTSecret(t *testing.T) {
	_, err := NewAuthService(config.Config{}, database.DB{})
	assert.Error(t, err)
}

func TestNewAuthService_RejectsBadEncryptionKey(t *testing.T) {
	_, err := NewAuthService(config.Config{
		JWTSecretKey:       "secret",
		OAuthEncryptionKey: "not-hex",
	}, database.DB{})
	assert.Error(t, err)

	_, err = NewAuthService(config.Config{
		JWTSecretKey:       "secret",
		OAuthEncryptionKey: "abcd", // 2 bytes, not 32
	}, database.DB{})
	assert.Error(t, err)
}

func TestHashPassword_FormatAndUniqueness(t *testing.T) {
	service := newTestAuthService(t, "")

	first, err := service.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	saltHex, keyHex, found := strings.Cut(first, ":")
	require.True(t, found)
	assert.Len(t, saltHex, passwordSaltLength*2)
	assert.Len(t, keyHex, passwordKeyLength*2)

	second, err := service.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "salts must differ between hashes")
}

func TestVerifyPassword(t *testing.T) {
	service := newTestAuthService(t, "")

	encoded, err := service.HashPassword("s3cret-password")
	require.NoError(t, err)

	assert.True(t, service.VerifyPassword("s3cret-password", encoded))
	assert.False(t, service.VerifyPassword("wrong-password", encoded))
	assert.False(t, service.VerifyPassword("", encoded))
}

func TestVerifyPassword_MalformedStoredValues(t *testing.T) {
	service := newTestAuthService(t, "")

	testCases := []struct {
		name    string
		encoded string
	}{
		{"no separator", "deadbeef"},
		{"bad salt hex", "zz:deadbeef"},
		{"bad key hex", "deadbeef:zz"},
		{"empty key", "deadbeef:"},
		{"empty string", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, service.VerifyPassword("anything", tc.encoded))
		})
	}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	service := newTestAuthService(t, "")

	user := &models.User{Email: "listener@example.com"}
	user.ID = uuid.New()

	raw, expiresIn, err := service.IssueToken(user)
	require.NoError(t, err)
	assert.Equal(t, int(AccessTokenTTL.Seconds()), expiresIn)

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return []byte("test-jwt-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "listener@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), claims.ExpiresAt.Time, time.Minute)
}

// mintToken signs claims with the given secret outside the service, so
// validation paths can be exercised without a revocation cache: tokens
// without a jti skip the revocation check entirely.
func mintToken(t *testing.T, secret string, claims TokenClaims) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestValidateToken(t *testing.T) {
	service := newTestAuthService(t, "")
	userID := uuid.New().String()

	raw := mintToken(t, "test-jwt-secret", TokenClaims{
		Email: "listener@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})

	claims, err := service.ValidateToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "listener@example.com", claims.Email)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	service := newTestAuthService(t, "")

	raw := mintToken(t, "test-jwt-secret", TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := service.ValidateToken(context.Background(), raw)
	assert.Error(t, err)
}

func TestValidateToken_RejectsWrongKey(t *testing.T) {
	service := newTestAuthService(t, "")

	raw := mintToken(t, "some-other-secret", TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := service.ValidateToken(context.Background(), raw)
	assert.Error(t, err)
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	service := newTestAuthService(t, "")

	_, err := service.ValidateToken(context.Background(), "not.a.token")
	assert.Error(t, err)
}

func TestEncryptSecret_RoundTrip(t *testing.T) {
	service := newTestAuthService(t, testEncryptionKey)

	sealed, err := service.EncryptSecret("discogs-access-secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "gcm:"))
	assert.NotContains(t, sealed, "discogs-access-secret")

	opened, err := service.DecryptSecret(sealed)
	require.NoError(t, err)
	assert.Equal(t, "discogs-access-secret", opened)
}

func TestEncryptSecret_NonceVariesPerCall(t *testing.T) {
	service := newTestAuthService(t, testEncryptionKey)

	first, err := service.EncryptSecret("same-value")
	require.NoError(t, err)
	second, err := service.EncryptSecret("same-value")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEncryptSecret_PassthroughWithoutKey(t *testing.T) {
	service := newTestAuthService(t, "")

	sealed, err := service.EncryptSecret("plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", sealed)
}

func TestDecryptSecret_PlaintextPassthrough(t *testing.T) {
	service := newTestAuthService(t, testEncryptionKey)

	// Rows written before encryption was enabled carry no prefix.
	opened, err := service.DecryptSecret("legacy-plaintext")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext", opened)
}

func TestDecryptSecret_EncryptedValueWithoutKey(t *testing.T) {
	withKey := newTestAuthService(t, testEncryptionKey)
	sealed, err := withKey.EncryptSecret("value")
	require.NoError(t, err)

	withoutKey := newTestAuthService(t, "")
	_, err = withoutKey.DecryptSecret(sealed)
	assert.Error(t, err)
}

func TestDecryptSecret_RejectsTamperedCiphertext(t *testing.T) {
	service := newTestAuthService(t, testEncryptionKey)

	sealed, err := service.EncryptSecret("value")
	require.NoError(t, err)

	tampered := sealed[:len(sealed)-2] + "AA"
	if tampered == sealed {
		tampered = sealed[:len(sealed)-2] + "BB"
	}
	_, err = service.DecryptSecret(tampered)
	assert.Error(t, err)
}
