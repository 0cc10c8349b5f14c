package middleware

import (
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/security"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const SessionCookie = "auth_token"

// Auth resolves the auth_token cookie to a user. The user is stored in the
// context under "user" and its ID under "userID".
type Auth struct {
	DB       *gorm.DB
	Sessions *security.Sessions
}

func NewAuth(db *gorm.DB, sessions *security.Sessions) *Auth {
	return &Auth{
		DB:       db,
		Sessions: sessions,
	}
}

// Optional lets anonymous visitors through. Broken or stale cookies are
// treated as no session at all.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.resolve(c)
		if err != nil && !errors.Is(err, errNoSession) {
			zap.L().Debug("Ignoring invalid session", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		}

		if user != nil {
			setUser(c, user)
		}

		c.Next()
	}
}

// Required rejects requests without a valid session
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		user, err := a.resolve(c)
		if err != nil {
			switch {
			case errors.Is(err, errNoSession):
				abort(c, http.StatusUnauthorized, "You need to be logged in")
			case errors.Is(err, security.ErrSessionInvalid):
				abort(c, http.StatusUnauthorized, "Authorization token invalid or expired. Please log in again")
			case errors.Is(err, gorm.ErrRecordNotFound):
				abort(c, http.StatusUnauthorized, "User not found")
			default:
				abort(c, http.StatusInternalServerError, "Internal server error")
				zap.L().Error("Failed to resolve session", zap.Error(err), zap.String("requestID", requestID))
			}

			return
		}

		setUser(c, user)
		c.Next()
	}
}

var errNoSession = errors.New("no session cookie")

func (a *Auth) resolve(c *gin.Context) (*model.User, error) {
	tokenStr, err := c.Cookie(SessionCookie)
	if err != nil || tokenStr == "" {
		return nil, errNoSession
	}

	claims, err := a.Sessions.Parse(tokenStr)
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := a.DB.WithContext(c.Request.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func setUser(c *gin.Context, u *model.User) {
	c.Set("user", u)
	c.Set("userID", u.ID)
}

// CurrentUser returns the user set by Auth or nil for anonymous requests
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get("user")
	if !ok {
		return nil
	}

	u, _ := v.(*model.User)
	return u
}

// AdminOnly must run after Auth.Required
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !u.IsAdmin {
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}

		c.Next()
	}
}
