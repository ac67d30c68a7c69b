package session

import (
	"context"
	"errors"
	"log"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
	"github.com/atriumhq/atrium/internal/services/identity/storage"
	"github.com/atriumhq/atrium/internal/services/identity/token"
	"github.com/atriumhq/atrium/internal/services/identity/user"
)

// TokenIdentity resolves the current caller from a request-scoped identity
// token. The token alone establishes identity; the stored profile only
// enriches it, so a missing or unreadable profile row still yields a caller
// with the verified user id.
type TokenIdentity struct {
	cfg   token.Config
	users storage.UserStore
}

// NewTokenIdentity creates a token-backed identity source.
func NewTokenIdentity(cfg token.Config, users storage.UserStore) *TokenIdentity {
	return &TokenIdentity{cfg: cfg, users: users}
}

// CurrentUser verifies the context token and returns the caller's profile.
func (t *TokenIdentity) CurrentUser(ctx context.Context) (user.Profile, error) {
	tokenValue, ok := token.FromContext(ctx)
	if !ok {
		return user.Profile{}, apperrors.New(apperrors.CodeIdentityUnauthenticated, "identity token is required")
	}
	claims, err := token.Verify(tokenValue, t.cfg)
	if err != nil {
		return user.Profile{}, err
	}

	record, err := t.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("session: profile fetch %s: %v", claims.UserID, err)
		}
		return user.Profile{ID: claims.UserID}, nil
	}
	return user.Profile{
		ID:          record.ID,
		DisplayName: record.DisplayName,
		Email:       record.Email,
		AvatarURL:   record.AvatarURL,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}, nil
}
