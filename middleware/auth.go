package middleware

import (
	"net/http"
	"strings"

	"github.com/CUknot/grammable/models"
	"github.com/CUknot/grammable/sessions"
	"github.com/CUknot/grammable/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// SessionCookie carries the session token for browser requests
	SessionCookie = "grammable_session"

	// LoginPath is where unauthenticated browser requests are sent
	LoginPath = "/users/sign_in"

	currentUserKey = "currentUser"
	claimsKey      = "claims"
)

// Auth resolves the current user from a bearer token or the session cookie
type Auth struct {
	DB      *gorm.DB
	Secret  string
	Revoker sessions.Revoker
}

// CurrentUser loads the signed in user, if any, into the context. It never aborts.
func (a *Auth) CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, fromCookie := tokenFromRequest(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := utils.ParseToken(tokenString, a.Secret)
		if err == nil {
			var revoked bool
			revoked, err = a.Revoker.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// The token may still be good; keep the cookie and retry next request.
				logrus.WithError(err).Error("Failed to check session revocation")
				c.Next()
				return
			}
			if revoked {
				err = utils.ErrInvalidToken
			}
		}

		var user models.User
		if err == nil {
			err = a.DB.WithContext(c.Request.Context()).First(&user, claims.UserID).Error
		}

		if err != nil {
			if fromCookie {
				ClearSessionCookie(c)
			}
			c.Next()
			return
		}

		c.Set(currentUserKey, &user)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireUser redirects browser requests without a session to the login page
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserFrom(c) == nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// JWTAuth rejects API requests without a valid bearer token
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			return
		}
		c.Next()
	}
}

// CurrentUserFrom returns the signed in user or nil
func CurrentUserFrom(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// ClaimsFrom returns the claims of the token that authenticated the request
func ClaimsFrom(c *gin.Context) *utils.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok {
			return claims
		}
	}
	return nil
}

// SetSessionCookie stores token in an HTTP-only cookie
func SetSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(utils.TokenTTL.Seconds()), "/", "", c.Request.TLS != nil, true)
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}

func tokenFromRequest(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), false
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}
