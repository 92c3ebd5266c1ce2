package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/internal/sessions"
	"github.com/otravers/otravers/backend/go-services/internal/tokens"
	"github.com/otravers/otravers/backend/go-services/pkg/metrics"
	"github.com/otravers/otravers/backend/go-services/pkg/response"
)

const (
	// AccessCookie and RefreshCookie are the cookie names carrying the tokens.
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	claimsKey = "claims"
)

type ctxKey struct{}

// AccessVerifier is the part of the token codec the middleware depends on.
type AccessVerifier interface {
	VerifyAccessToken(raw string) (*tokens.AccessClaims, error)
}

// SessionLookup is the read side of the session store.
type SessionLookup interface {
	Get(ctx context.Context, id string) (*sessions.Session, error)
}

// SessionAuth returns a Gin middleware that admits a request only when its
// access-token cookie verifies and the session it names still exists.
// Rejections: AUTH_001 no cookie, AUTH_002 expired, AUTH_003 invalid,
// AUTH_007 session gone.
func SessionAuth(ver AccessVerifier, store SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(AccessCookie)
		if err != nil || raw == "" {
			reject(c, "missing_token", apperr.ErrAuthenticationRequired)
			return
		}

		claims, err := ver.VerifyAccessToken(raw)
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, apperr.ErrTokenExpired) {
				reason = "expired_token"
			}
			reject(c, reason, err)
			return
		}

		sess, err := store.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			response.Error(c, apperr.Wrap(apperr.KindServiceFailure, "Internal server error", err))
			return
		}
		if sess == nil || sess.UserID != claims.UserID {
			reject(c, "invalid_session", apperr.ErrInvalidSession)
			return
		}

		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, claims))
		c.Next()
	}
}

func reject(c *gin.Context, reason string, err error) {
	metrics.SessionRejections.WithLabelValues(reason).Inc()
	response.Error(c, err)
}

// ClaimsFrom returns the claims SessionAuth attached to c.
func ClaimsFrom(c *gin.Context) (*tokens.AccessClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*tokens.AccessClaims)
	return claims, ok && claims != nil
}

// ClaimsFromContext returns the claims attached to a request context.
func ClaimsFromContext(ctx context.Context) (*tokens.AccessClaims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*tokens.AccessClaims)
	return claims, ok && claims != nil
}
