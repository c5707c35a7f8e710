package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/chachabrian/rideon-backend/internal/models"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// AccessTokenCookie and the session key of the same name carry the
	// access token for browser clients
	AccessTokenCookie = "access_token"

	userKey     = "user"
	userIDKey   = "userId"
	userTypeKey = "userType"
)

// Authenticator resolves an access token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// extractToken looks in the cookie, the Authorization header, the query
// string (websocket clients) and finally the session, in that order.
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return strings.TrimSpace(parts[1])
		}
	}

	if token := c.Query("token"); token != "" {
		return token
	}

	if _, ok := c.Get(sessions.DefaultKey); ok {
		if token, ok := sessions.Default(c).Get(AccessTokenCookie).(string); ok {
			return token
		}
	}
	return ""
}

// wantsHTML reports whether the client is a browser navigating to a page
func wantsHTML(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet {
		return false
	}
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return false
	}
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

// AuthRequired rejects requests without a valid, unrevoked access token.
// Browsers are sent to the login page, API clients get a 401.
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			unauthenticated(c, apperrors.Unauthorized("Authentication credentials were not provided", nil))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			unauthenticated(c, err)
			return
		}

		c.Set(userKey, user)
		c.Set(userIDKey, user.ID)
		c.Set(userTypeKey, string(user.UserType))
		c.Next()
	}
}

func unauthenticated(c *gin.Context, err error) {
	if wantsHTML(c) {
		c.Redirect(http.StatusFound, "/login/?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
		return
	}
	RespondError(c, err)
	c.Abort()
}

// CurrentUser returns the user set by AuthRequired
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// LandingPage is where a user of the given type belongs after login
func LandingPage(userType models.UserType) string {
	switch userType {
	case models.UserTypeDriver:
		return "/driver-dashboard/"
	case models.UserTypeRider:
		return "/dashboard/"
	}
	return "/"
}

// RequireRole lets through only users of the given types. Browsers are
// redirected to their own landing page; API clients get a 403 carrying it.
func RequireRole(roles ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			unauthenticated(c, apperrors.Unauthorized("Authentication credentials were not provided", nil))
			return
		}
		for _, role := range roles {
			if user.UserType == role {
				c.Next()
				return
			}
		}

		landing := LandingPage(user.UserType)
		if wantsHTML(c) {
			c.Redirect(http.StatusFound, landing)
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":        "You do not have permission to perform this action",
			"code":         "FORBIDDEN",
			"redirect_url": landing,
		})
	}
}
