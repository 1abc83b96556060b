package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-insights-api/internal/constants"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/services"
)

// IdentityResolver maps a provider identity onto an internal user.
type IdentityResolver interface {
	Resolve(ctx context.Context, identity services.ExternalIdentity) (*models.User, error)
}

// RequireAuth authenticates the request with a bearer token when a verifier
// is configured and the header is present, otherwise with the session. The
// resolved internal user id is stored in the context.
func RequireAuth(resolver IdentityResolver, verifier services.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromRequest(c, verifier)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), identity)
		if err != nil {
			if errors.Is(err, services.ErrMissingIdentity) {
				apierrors.Unauthorized(c, "")
			} else {
				apierrors.Upstream(c, "Failed to resolve user")
			}
			c.Abort()
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyIdentity, identity)
		c.Next()
	}
}

func identityFromRequest(c *gin.Context, verifier services.TokenVerifier) (services.ExternalIdentity, bool) {
	if token, ok := bearerToken(c); ok {
		if verifier == nil {
			return services.ExternalIdentity{}, false
		}
		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			return services.ExternalIdentity{}, false
		}
		return identity, true
	}

	session := sessions.Default(c)
	externalID, _ := session.Get(constants.SessionKeyExternalID).(string)
	if externalID == "" {
		return services.ExternalIdentity{}, false
	}
	email, _ := session.Get(constants.SessionKeyEmail).(string)
	displayName, _ := session.Get(constants.SessionKeyDisplayName).(string)

	return services.ExternalIdentity{
		ExternalID:  externalID,
		Email:       email,
		DisplayName: displayName,
	}, true
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
