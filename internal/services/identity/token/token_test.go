package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
)

const (
	testIssuer   = "https://id.atrium.test"
	testAudience = "atrium-ai"
)

func testKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

func testConfig(pub ed25519.PublicKey, now time.Time) Config {
	return Config{
		Issuer:   testIssuer,
		Audience: testAudience,
		Key:      pub,
		Now:      func() time.Time { return now },
	}
}

func signToken(t *testing.T, priv ed25519.PrivateKey, claims identityClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func baseClaims(now time.Time) identityClaims {
	return identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        "jti-1",
		},
		UserID: "user-1",
	}
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pub, priv := testKeys(t)
	cfg := testConfig(pub, now)

	t.Run("valid token", func(t *testing.T) {
		claims, err := Verify(signToken(t, priv, baseClaims(now)), cfg)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if claims.UserID != "user-1" {
			t.Fatalf("unexpected user id %q", claims.UserID)
		}
		if claims.Issuer != testIssuer {
			t.Fatalf("unexpected issuer %q", claims.Issuer)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := Verify("  ", cfg)
		if !errors.Is(err, apperrors.New(apperrors.CodeIdentityTokenInvalid, "")) {
			t.Fatalf("expected invalid token error, got %v", err)
		}
	})

	t.Run("wrong signing key", func(t *testing.T) {
		_, otherPriv := testKeys(t)
		_, err := Verify(signToken(t, otherPriv, baseClaims(now)), cfg)
		if !errors.Is(err, apperrors.New(apperrors.CodeIdentityTokenInvalid, "")) {
			t.Fatalf("expected invalid token error, got %v", err)
		}
	})

	t.Run("hmac alg rejected", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims(now)).SignedString([]byte("shared"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		if _, err := Verify(signed, cfg); !errors.Is(err, apperrors.New(apperrors.CodeIdentityTokenInvalid, "")) {
			t.Fatalf("expected invalid token error, got %v", err)
		}
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		claims := baseClaims(now)
		claims.Issuer = "https://other.test"
		if _, err := Verify(signToken(t, priv, claims), cfg); !errors.Is(err, apperrors.New(apperrors.CodeIdentityTokenInvalid, "")) {
			t.Fatalf("expected invalid token error, got %v", err)
		}
	})

	t.Run("audience mismatch", func(t *testing.T) {
		claims := baseClaims(now)
		claims.Audience = jwt.ClaimStrings{"other-service"}
		if _, err := Verify(signToken(t, priv, claims), cfg); !errors.Is(err, apperrors.New(apperrors.CodeIdentityTokenInvalid, "")) {
			t.Fatalf("expected invalid token error, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		claims := baseClaims(now)
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		if _, err := Verify(signToken(t, priv, claims), cfg); !errors.Is(err, apperrors.New(apperrors.CodeIdentityTokenExpired, "")) {
			t.Fatalf("expected expired token error, got %v", err)
		}
	})

	t.Run("missing exp", func(t *testing.T) {
		claims := baseClaims(now)
		claims.ExpiresAt = nil
		if _, err := Verify(signToken(t, priv, claims), cfg); !errors.Is(err, apperrors.New(apperrors.CodeIdentityTokenInvalid, "")) {
			t.Fatalf("expected invalid token error, got %v", err)
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		claims := baseClaims(now)
		claims.UserID = " "
		if _, err := Verify(signToken(t, priv, claims), cfg); !errors.Is(err, apperrors.New(apperrors.CodeIdentityTokenInvalid, "")) {
			t.Fatalf("expected invalid token error, got %v", err)
		}
	})
}

func TestLoadConfigFromEnv(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	encoded := base64.RawStdEncoding.EncodeToString(pub)

	t.Run("complete configuration", func(t *testing.T) {
		t.Setenv("ATRIUM_IDENTITY_ISSUER", testIssuer)
		t.Setenv("ATRIUM_IDENTITY_AUDIENCE", testAudience)
		t.Setenv("ATRIUM_IDENTITY_PUBLIC_KEY", encoded)
		cfg, err := LoadConfigFromEnv(nil)
		if err != nil {
			t.Fatalf("LoadConfigFromEnv: %v", err)
		}
		if cfg.Issuer != testIssuer || cfg.Audience != testAudience {
			t.Fatalf("unexpected config %+v", cfg)
		}
		if len(cfg.Key) != ed25519.PublicKeySize {
			t.Fatalf("unexpected key length %d", len(cfg.Key))
		}
	})

	t.Run("padded key accepted", func(t *testing.T) {
		t.Setenv("ATRIUM_IDENTITY_ISSUER", testIssuer)
		t.Setenv("ATRIUM_IDENTITY_AUDIENCE", testAudience)
		t.Setenv("ATRIUM_IDENTITY_PUBLIC_KEY", base64.StdEncoding.EncodeToString(pub))
		if _, err := LoadConfigFromEnv(nil); err != nil {
			t.Fatalf("LoadConfigFromEnv: %v", err)
		}
	})

	t.Run("missing issuer", func(t *testing.T) {
		t.Setenv("ATRIUM_IDENTITY_ISSUER", "")
		t.Setenv("ATRIUM_IDENTITY_AUDIENCE", testAudience)
		t.Setenv("ATRIUM_IDENTITY_PUBLIC_KEY", encoded)
		if _, err := LoadConfigFromEnv(nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("malformed key", func(t *testing.T) {
		t.Setenv("ATRIUM_IDENTITY_ISSUER", testIssuer)
		t.Setenv("ATRIUM_IDENTITY_AUDIENCE", testAudience)
		t.Setenv("ATRIUM_IDENTITY_PUBLIC_KEY", "not-base64!!!")
		if _, err := LoadConfigFromEnv(nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("short key", func(t *testing.T) {
		t.Setenv("ATRIUM_IDENTITY_ISSUER", testIssuer)
		t.Setenv("ATRIUM_IDENTITY_AUDIENCE", testAudience)
		t.Setenv("ATRIUM_IDENTITY_PUBLIC_KEY", base64.RawStdEncoding.EncodeToString([]byte("short")))
		if _, err := LoadConfigFromEnv(nil); err == nil {
			t.Fatal("expected error")
		}
	})
}
