package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/session"
)

// Context keys set by SessionAuth.
const (
	UserIDKey    = "user_id"
	SessionIDKey = "session_id"
)

// Authenticator resolves a bearer token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (session.Session, error)
}

// SessionAuth rejects requests without a valid bearer session and exposes the
// caller's user and session ids to handlers.
func SessionAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, apperr.Unauthorized, "missing bearer token")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, apperr.Unauthorized, "invalid authorization header format")
			return
		}

		s, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			kind := apperr.KindOf(err)
			status := http.StatusUnauthorized
			if kind == apperr.ServiceUnavailable {
				status = http.StatusServiceUnavailable
				_ = c.Error(err)
			}
			abort(c, status, kind, apperr.MessageOf(err))
			return
		}

		c.Set(UserIDKey, s.UserID)
		c.Set(SessionIDKey, s.ID)
		c.Next()
	}
}

func abort(c *gin.Context, status int, kind apperr.Kind, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": kind.Code()})
}
