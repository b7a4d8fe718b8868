package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/jwt"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

// JWTProvider resolves bearer tokens issued by the campus identity platform.
type JWTProvider struct {
	manager *jwt.Manager
}

// NewJWTProvider creates a provider backed by the given JWT manager.
func NewJWTProvider(manager *jwt.Manager) *JWTProvider {
	return &JWTProvider{manager: manager}
}

// Resolve validates the token and maps its claims to an Identity. The
// display name falls back to the username when the profile carries no
// full name.
func (p *JWTProvider) Resolve(ctx context.Context, credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := p.manager.ValidateToken(credential)
	if err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("token validation failed")
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	display := strings.TrimSpace(claims.Name)
	if display == "" {
		display = claims.Username
	}

	return &Identity{
		UserID:      claims.UserID,
		Username:    claims.Username,
		DisplayName: display,
		Email:       claims.Email,
	}, nil
}
