package core

import (
	"context"

	"github.com/dkeye/Huddle/internal/domain"
)

// UserStore resolves identities. Lookups may hit an external store, hence
// the context.
type UserStore interface {
	FindByUID(ctx context.Context, uid domain.UserID) (*domain.User, error)
	FindByCredential(ctx context.Context, login, credential string) (*domain.User, error)
}

// TokenVerifier checks a signed auth token and extracts the uid claim.
type TokenVerifier interface {
	Verify(token string) (domain.UserID, error)
}
