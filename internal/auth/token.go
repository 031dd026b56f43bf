// Package auth implements the Token Authority: issuance, verification, and
// revocation of tenant-scoped session tokens, plus the demo login surface
// that issues them.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

// TokenClaims are the claims embedded in a self-issued session token.
type TokenClaims struct {
	Subject        string    `json:"sub"`
	TenantID       string    `json:"tenant_id"`
	Role           string    `json:"role"`
	EmailPseudonym string    `json:"email_pseudonym"`
	TokenID        string    `json:"jti"`
	KeyID          string    `json:"kid"`
	IssuedAt       time.Time `json:"-"`
	ExpiresAt      time.Time `json:"-"`
}

// Kind of decode failure, distinguished so callers can respond with the
// right HTTP status and log line.
type DecodeErrorKind string

const (
	DecodeErrExpired          DecodeErrorKind = "expired"
	DecodeErrInvalidSignature DecodeErrorKind = "invalid-signature"
	DecodeErrMalformed        DecodeErrorKind = "malformed"
	DecodeErrRevoked          DecodeErrorKind = "revoked"
)

// DecodeError wraps a DecodeErrorKind so callers can extract it with
// errors.As and compare its Kind against the constants above.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const issuer = "routeguard"

// Authority issues and validates self-signed session tokens using HMAC-SHA256
// and maintains a revocation set keyed by token-id.
type Authority struct {
	signingKey   []byte
	keyID        string
	maxLifetime  time.Duration
	revocations  RevocationStore
}

// RevocationStore is the shared key-value store backing the revocation set.
// Implemented by a thin Redis wrapper in production, and by an in-memory map
// in tests.
type RevocationStore interface {
	MarkRevoked(tokenID string, ttl time.Duration) error
	IsRevoked(tokenID string) (bool, error)
}

// NewAuthority creates a Token Authority. The secret must be at least 32
// bytes; maxLifetime caps every issued token regardless of the requested
// lifetime.
func NewAuthority(secret, keyID string, maxLifetime time.Duration, revocations RevocationStore) (*Authority, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Authority{
		signingKey:  []byte(secret),
		keyID:       keyID,
		maxLifetime: maxLifetime,
		revocations: revocations,
	}, nil
}

// GenerateDevSecret generates a random 32-byte hex-encoded secret for dev mode.
func GenerateDevSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

// pseudonymiseEmail computes the per-tenant email pseudonym: HMAC-SHA256 of
// the lowercased email under key signing-secret‖":"‖tenant-id, truncated to
// 16 bytes (32 hex chars). The same email under two tenants yields different
// pseudonyms because the tenant id is part of the key, not the message.
func (a *Authority) pseudonymiseEmail(email, tenantID string) string {
	key := append(append([]byte{}, a.signingKey...), ':')
	key = append(key, []byte(tenantID)...)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strings.ToLower(email)))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}

// IssueToken issues a signed token. The requested lifetime is capped at the
// Authority's configured maximum.
func (a *Authority) IssueToken(userID, tenantID, role, email string, lifetime time.Duration) (string, TokenClaims, error) {
	if lifetime <= 0 || lifetime > a.maxLifetime {
		lifetime = a.maxLifetime
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: a.signingKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", TokenClaims{}, fmt.Errorf("creating signer: %w", err)
	}

	now := time.Now()
	claims := TokenClaims{
		Subject:        userID,
		TenantID:       tenantID,
		Role:           role,
		EmailPseudonym: a.pseudonymiseEmail(email, tenantID),
		TokenID:        uuid.New().String(),
		KeyID:          a.keyID,
	}
	registered := jwt.Claims{
		Subject:   claims.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(lifetime)),
		Issuer:    issuer,
		ID:        claims.TokenID,
	}

	token, err := jwt.Signed(signer).Claims(registered).Claims(claims).Serialize()
	if err != nil {
		return "", TokenClaims{}, fmt.Errorf("signing token: %w", err)
	}
	claims.IssuedAt = now
	claims.ExpiresAt = now.Add(lifetime)
	return token, claims, nil
}

// DecodeToken verifies signature, not-before/expiry, and shape. It does not
// consult the revocation set; use Verify for that.
func (a *Authority) DecodeToken(raw string) (TokenClaims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return TokenClaims{}, &DecodeError{Kind: DecodeErrMalformed, Err: err}
	}

	var registered jwt.Claims
	var custom TokenClaims
	if err := tok.Claims(a.signingKey, &registered, &custom); err != nil {
		return TokenClaims{}, &DecodeError{Kind: DecodeErrInvalidSignature, Err: err}
	}

	if err := registered.ValidateWithLeeway(jwt.Expected{
		Issuer: issuer,
		Time:   time.Now(),
	}, 5*time.Second); err != nil {
		if strings.Contains(err.Error(), "expired") {
			return TokenClaims{}, &DecodeError{Kind: DecodeErrExpired, Err: err}
		}
		return TokenClaims{}, &DecodeError{Kind: DecodeErrMalformed, Err: err}
	}

	if registered.IssuedAt != nil {
		custom.IssuedAt = registered.IssuedAt.Time()
	}
	if registered.Expiry != nil {
		custom.ExpiresAt = registered.Expiry.Time()
	}

	return custom, nil
}

// Verify composes DecodeToken with a revocation check.
func (a *Authority) Verify(raw string) (TokenClaims, error) {
	claims, err := a.DecodeToken(raw)
	if err != nil {
		return TokenClaims{}, err
	}

	revoked, err := a.revocations.IsRevoked(claims.TokenID)
	if err != nil {
		return TokenClaims{}, fmt.Errorf("checking revocation: %w", err)
	}
	if revoked {
		return TokenClaims{}, &DecodeError{Kind: DecodeErrRevoked}
	}

	return claims, nil
}

// Revoke writes the token's id into the revocation set until its natural
// expiry.
func (a *Authority) Revoke(claims TokenClaims) error {
	ttl := time.Until(claims.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	return a.revocations.MarkRevoked(claims.TokenID, ttl)
}
