package services

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"waxworks/config"
	"waxworks/internal/constants"
	"waxworks/internal/database"
	"waxworks/internal/models"
	"waxworks/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordIterations = 100_000
	passwordKeyLength  = 32
	passwordSaltLength = 16

	// AccessTokenTTL bounds every issued JWT.
	AccessTokenTTL = 30 * time.Minute
)

// TokenClaims is the JWT payload: registered claims plus the account email.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService owns credential hashing, JWT issue/verify/revoke, and at-rest
// encryption of third-party secrets.
type AuthService struct {
	secret    []byte
	aead      cipher.AEAD
	authCache database.CacheClient
	dummyHash string
	log       logger.Logger
}

func NewAuthService(cfg config.Config, db database.DB) (*AuthService, error) {
	log := logger.New("authService")

	if cfg.JWTSecretKey == "" {
		return nil, log.ErrMsg("JWT_SECRET_KEY is required")
	}

	// Optional at-rest encryption: a 32-byte hex key enables AES-256-GCM for
	// stored OAuth secrets; without it values are stored as written.
	var aead cipher.AEAD
	if cfg.OAuthEncryptionKey != "" {
		key, err := hex.DecodeString(cfg.OAuthEncryptionKey)
		if err != nil {
			return nil, log.Err("OAUTH_ENCRYPTION_KEY is not valid hex", err)
		}
		if len(key) != 32 {
			return nil, log.Error("OAUTH_ENCRYPTION_KEY must decode to 32 bytes", "bytes", len(key))
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, log.Err("failed to initialize AES cipher", err)
		}
		aead, err = cipher.NewGCM(block)
		if err != nil {
			return nil, log.Err("failed to initialize GCM", err)
		}
		log.Info("OAuth token encryption enabled")
	}

	service := &AuthService{
		secret:    []byte(cfg.JWTSecretKey),
		aead:      aead,
		authCache: db.Cache.Auth,
		log:       log,
	}

	// Hash a throwaway value once so unknown-account logins can burn the
	// same PBKDF2 cost as real ones.
	dummy, err := service.HashPassword(randomHex(16))
	if err != nil {
		return nil, log.Err("failed to prepare dummy hash", err)
	}
	service.dummyHash = dummy

	return service, nil
}

// HashPassword derives a PBKDF2-SHA256 key from the password and a fresh
// random salt, encoded as "{salt_hex}:{key_hex}".
func (s *AuthService) HashPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", s.log.Function("HashPassword").Err("failed to generate salt", err)
	}

	key := pbkdf2.Key([]byte(password), salt, passwordIterations, passwordKeyLength, sha256.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword re-derives the key under the stored salt and compares in
// constant time. Malformed stored values never verify.
func (s *AuthService) VerifyPassword(password, encoded string) bool {
	saltHex, keyHex, found := strings.Cut(encoded, ":")
	if !found {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(keyHex)
	if err != nil || len(expected) == 0 {
		return false
	}

	derived := pbkdf2.Key([]byte(password), salt, passwordIterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

// VerifyDummy runs a full verification against a fixed throwaway hash so the
// unknown-account login path costs the same as a real one.
func (s *AuthService) VerifyDummy(password string) {
	s.VerifyPassword(password, s.dummyHash)
}

// IssueToken signs a 30-minute HS256 access token for the user. The second
// return value is the lifetime in seconds for the token response.
func (s *AuthService) IssueToken(user *models.User) (string, int, error) {
	log := s.log.Function("IssueToken")

	now := time.Now()
	claims := TokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        randomHex(16),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, log.Err("failed to sign token", err)
	}

	return token, int(AccessTokenTTL.Seconds()), nil
}

// ValidateToken verifies signature and expiry, then rejects tokens whose jti
// has been revoked by a logout.
func (s *AuthService) ValidateToken(ctx context.Context, raw string) (*TokenClaims, error) {
	log := s.log.Function("ValidateToken")

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.ID != "" {
		revoked, err := database.NewCacheBuilder(s.authCache, claims.ID).
			WithHashPattern(constants.RevokedJTIPrefix + "%s").
			WithContext(ctx).
			Exists()
		if err != nil {
			return nil, log.Err("failed to check token revocation", err)
		}
		if revoked {
			return nil, fmt.Errorf("token has been revoked")
		}
	}

	return claims, nil
}

// RevokeToken blacklists the token's jti until its natural expiry, with a
// one-minute floor so near-expired tokens still land in the blacklist.
func (s *AuthService) RevokeToken(ctx context.Context, claims *TokenClaims) error {
	log := s.log.Function("RevokeToken")

	if claims.ID == "" {
		return nil
	}

	ttl := constants.MinRevocationTTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > ttl {
			ttl = remaining
		}
	}

	err := database.NewCacheBuilder(s.authCache, claims.ID).
		WithHashPattern(constants.RevokedJTIPrefix + "%s").
		WithValue("1").
		WithTTL(ttl).
		WithContext(ctx).
		Set()
	if err != nil {
		return log.Err("failed to store token revocation", err)
	}
	return nil
}

// EncryptSecret seals a value for storage. Without a configured key the
// value passes through unchanged.
func (s *AuthService) EncryptSecret(plaintext string) (string, error) {
	if s.aead == nil {
		return plaintext, nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", s.log.Function("EncryptSecret").Err("failed to generate nonce", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return "gcm:" + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptSecret opens a stored value. Values without the ciphertext prefix
// are returned as-is so rows written before encryption was enabled keep
// working.
func (s *AuthService) DecryptSecret(stored string) (string, error) {
	log := s.log.Function("DecryptSecret")

	encoded, isEncrypted := strings.CutPrefix(stored, "gcm:")
	if !isEncrypted {
		return stored, nil
	}
	if s.aead == nil {
		return "", log.ErrMsg("encrypted value present but OAUTH_ENCRYPTION_KEY is not configured")
	}

	sealed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return "", log.Err("failed to decode ciphertext", err)
	}
	if len(sealed) < s.aead.NonceSize() {
		return "", log.ErrMsg("ciphertext shorter than nonce")
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", log.Err("failed to decrypt value", err)
	}
	return string(plaintext), nil
}

// randomHex returns n random bytes hex-encoded (2n characters).
func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// nothing sensible can continue from that.
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
