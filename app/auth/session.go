// Package auth contains the handlers that sign users in and out
package auth

import (
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// startSession sets the auth_token cookie for u
func startSession(c *gin.Context, d *internal.Deps, u *model.User) error {
	token, err := d.Sessions.Issue(u.ID)
	if err != nil {
		return err
	}

	maxAge := int(d.Sessions.TTL().Seconds())
	secure := viper.GetBool("host.ssl.enabled")

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", secure, true)
	c.SetCookie("logged_in", "1", maxAge, "/", "", secure, false)

	return nil
}

func clearSession(c *gin.Context) {
	secure := viper.GetBool("host.ssl.enabled")

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", secure, true)
	c.SetCookie("logged_in", "", -1, "/", "", secure, false)
}

// loggedIn is the response body of every successful sign in
func loggedIn(c *gin.Context, u *model.User) {
	c.JSON(http.StatusOK, gin.H{
		"userID": u.ID,
		"user":   u,
	})
}

// Logout clears the session cookies
func Logout(c *gin.Context) {
	clearSession(c)
	c.Status(http.StatusNoContent)
}
