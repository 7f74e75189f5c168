package port

import (
	"context"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

type IdentityProvider interface {
	// Identify resolves a session token to the caller's identity
	Identify(ctx context.Context, token string) (domain.Identity, error)
}
