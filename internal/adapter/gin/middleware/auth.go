package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "room-user-service/internal/domain/user"
	pkgerrors "room-user-service/pkg/errors"
	"room-user-service/pkg/logger"
)

const callerKey = "caller"

// CallerResolver resolves a bearer token to the user it was issued to.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, accessToken string) (*domain.User, error)
}

// Authenticate requires an "Authorization: Bearer <token>" header and
// stores the resolved user on the context. The user is loaded on every
// request.
func Authenticate(resolver CallerResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, pkgerrors.NewUnauthorizedError("not authenticated"))
			return
		}

		caller, err := resolver.ResolveCaller(c.Request.Context(), token)
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Debug("authentication failed", zap.Error(err))
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), caller.ID.String()))
		c.Set(callerKey, caller)
		c.Next()
	}
}

// RequireActive rejects callers whose account is inactive.
func RequireActive() gin.HandlerFunc {
	return require(domain.Active)
}

// RequireSuperuser rejects callers that are not active superusers.
func RequireSuperuser() gin.HandlerFunc {
	return require(domain.ActiveSuperuser)
}

func require(level domain.AccessLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CurrentUser(c)
		switch {
		case caller == nil:
			AbortWithError(c, pkgerrors.NewUnauthorizedError("not authenticated"))
		case !caller.IsActive:
			AbortWithError(c, pkgerrors.NewForbiddenError("inactive user"))
		case !caller.Satisfies(level):
			AbortWithError(c, pkgerrors.NewForbiddenError("the user doesn't have enough privileges"))
		default:
			c.Next()
		}
	}
}

// CurrentUser returns the authenticated caller, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
