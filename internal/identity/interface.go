package identity

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned when connection credentials cannot be
// resolved to a user.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is a resolved user identity.
type Identity struct {
	UserID      string
	Username    string
	DisplayName string
	Email       string
}

// Provider resolves inbound connection credentials to a stable identity.
// Implementations must return ErrUnauthenticated (possibly wrapped) for any
// credential that cannot be resolved.
type Provider interface {
	Resolve(ctx context.Context, credential string) (*Identity, error)
}
