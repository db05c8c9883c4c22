package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dae-backend/internal/http/response"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/ctxutil"
	"github.com/yungbote/dae-backend/internal/platform/logger"
	"github.com/yungbote/dae-backend/internal/services"
)

const DefaultSessionCookie = "dae_session"

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
	cookieName  string
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, cookieName string) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	if strings.TrimSpace(cookieName) == "" {
		cookieName = DefaultSessionCookie
	}
	return &AuthMiddleware{log: middlewareLogger, authService: authService, cookieName: cookieName}
}

// RequireAuth resolves the session from the cookie or a bearer token and
// attaches the caller to the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := am.extractToken(c)
		if tokenString == "" {
			response.RespondErr(c, apierr.Unauthorized("missing session"))
			return
		}
		rd, err := am.authService.ParseSession(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("Session rejected", "error", err)
			response.RespondErr(c, err)
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if cookie, err := c.Cookie(am.cookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
