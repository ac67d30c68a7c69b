// Package token verifies signed identity tokens.
//
// Identity tokens are EdDSA-signed JWTs minted by the identity edge; this
// package is the trust boundary that turns one into a verified caller user
// id for session resolution.
package token

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
)

// identityEnv holds raw env values before post-parse validation.
type identityEnv struct {
	Issuer    string `env:"ATRIUM_IDENTITY_ISSUER"`
	Audience  string `env:"ATRIUM_IDENTITY_AUDIENCE"`
	PublicKey string `env:"ATRIUM_IDENTITY_PUBLIC_KEY"`
}

// Config defines how identity tokens are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Claims captures validated identity token claims.
type Claims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JWTID     string
	UserID    string
}

// identityClaims is the internal claims type used for JWT parsing.
type identityClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// LoadConfigFromEnv reads identity token verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw identityEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse identity env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return Config{}, fmt.Errorf("ATRIUM_IDENTITY_ISSUER is required")
	}
	if audience == "" {
		return Config{}, fmt.Errorf("ATRIUM_IDENTITY_AUDIENCE is required")
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("ATRIUM_IDENTITY_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode identity public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("identity public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verify checks an identity token signature and claims and returns the
// validated claim set.
func Verify(tokenValue string, cfg Config) (Claims, error) {
	tokenValue = strings.TrimSpace(tokenValue)
	if tokenValue == "" {
		return Claims{}, apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return Claims{}, errors.New("identity token verifier is not configured")
	}

	var parsed identityClaims
	_, err := jwt.ParseWithClaims(tokenValue, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeIdentityTokenInvalid,
			"identity token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeIdentityTokenInvalid,
			"identity token audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}

	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token exp is required")
	}
	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeIdentityTokenExpired, "identity token is expired")
	}

	if strings.TrimSpace(parsed.UserID) == "" {
		return Claims{}, apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token user id is required")
	}

	claims := Claims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
		UserID:    strings.TrimSpace(parsed.UserID),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token alg is invalid")
	}
	return apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
