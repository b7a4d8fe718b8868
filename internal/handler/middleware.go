package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/response"
)

const identityKey = "identity"

// RequireAuth resolves the bearer token and stores the identity in the
// request context. Requests without a valid credential are rejected.
func RequireAuth(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		ident, err := provider.Resolve(c.Request.Context(), strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			l := log.Ctx(c.Request.Context())
			l.Warn().Err(err).Str(log.FieldPath, c.Request.URL.Path).Msg("authentication rejected")
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity set by RequireAuth.
func IdentityFrom(c *gin.Context) (*identity.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	ident, ok := v.(*identity.Identity)
	return ident, ok
}
