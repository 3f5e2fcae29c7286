package middleware

import (
	"strings"

	"flashfeed/internal/apperr"
	"flashfeed/internal/auth"
	"flashfeed/internal/utils"

	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

// Identity is the caller as proven by the bearer token.
type Identity struct {
	UserID   uint
	Username string
}

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// LoadUser reads the bearer token, if any, and stores the identity in the
// context. Invalid tokens are ignored here and rejected by AuthRequired.
func LoadUser(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if tok, ok := strings.CutPrefix(header, "Bearer "); ok {
			if claims, err := tokens.Parse(strings.TrimSpace(tok)); err == nil {
				c.Set(IdentityKey, &Identity{UserID: claims.UserID, Username: claims.Username})
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a valid token was presented
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			AbortWithError(c, apperr.Unauthorized("Unauthorized"))
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}

// Matches reports whether ref (numeric id or username) names the caller.
func (id *Identity) Matches(ref string) bool {
	if n, ok := utils.ParseID(ref); ok {
		return n == id.UserID
	}
	return ref == id.Username
}

// CorrectUserParam requires the :param path segment to name the caller.
func CorrectUserParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentUser(c)
		if !ok || !id.Matches(c.Param(param)) {
			AbortWithError(c, apperr.Unauthorized("Unauthorized"))
			return
		}
		c.Next()
	}
}

// RequireSelf aborts with 401 unless userID is the caller. Used by handlers
// once the body has been bound.
func RequireSelf(c *gin.Context, userID uint) bool {
	id, ok := CurrentUser(c)
	if !ok || id.UserID != userID {
		AbortWithError(c, apperr.Unauthorized("Unauthorized"))
		return false
	}
	return true
}

// RequireSelfName is RequireSelf for a username.
func RequireSelfName(c *gin.Context, username string) bool {
	id, ok := CurrentUser(c)
	if !ok || id.Username != username {
		AbortWithError(c, apperr.Unauthorized("Unauthorized"))
		return false
	}
	return true
}
