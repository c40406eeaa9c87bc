package jwtmw

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName is the cookie carrying the session token.
	CookieName = "t"

	// ContextUserID is the gin context key holding the authenticated principal.
	ContextUserID = "userID"
)

// ErrMissingToken is returned when the request carries no session cookie.
var ErrMissingToken = errors.New("missing token")

// TokenDecoder verifies a token and returns its subject.
type TokenDecoder interface {
	Decode(token string) (string, error)
}

// Authenticate extracts the session token from the request and decodes it.
// The error is ErrMissingToken when the cookie is absent, otherwise it wraps
// ErrTokenExpired or ErrTokenInvalid.
func Authenticate(r *http.Request, decoder TokenDecoder) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrMissingToken
	}
	return decoder.Decode(cookie.Value)
}

// AuthRequired returns a Gin middleware that rejects requests without a valid
// session cookie and stores the principal under ContextUserID.
func AuthRequired(decoder TokenDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := Authenticate(c.Request, decoder)
		if err != nil {
			slog.Warn("request rejected by auth gate", "reason", rejectReason(err), "path", c.FullPath(), "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusBadRequest, rejectReason(err))
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// Principal returns the authenticated user id set by AuthRequired.
func Principal(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing token"
	case errors.Is(err, ErrTokenExpired):
		return "token expired"
	default:
		return "invalid token"
	}
}
